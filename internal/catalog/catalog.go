// Package catalog holds the static site content: profile, education, skills
// and the project catalog. It is loaded once at startup and never mutated.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrNotFound is returned when a project slug is not in the catalog.
var ErrNotFound = errors.New("project not found")

// Project is one showcased work item.
type Project struct {
	Slug                string   `yaml:"slug" json:"slug"`
	Title               string   `yaml:"title" json:"title"`
	Description         string   `yaml:"description" json:"description"`
	DetailedDescription string   `yaml:"detailed_description,omitempty" json:"detailed_description,omitempty"`
	Features            []string `yaml:"features" json:"features"`
	TechStack           []string `yaml:"tech_stack" json:"tech_stack"`
	Image               string   `yaml:"image" json:"image"`
	GitHub              string   `yaml:"github" json:"github"`
	Demo                string   `yaml:"demo" json:"demo"`
	Featured            bool     `yaml:"featured" json:"featured"`
	Challenges          []string `yaml:"challenges,omitempty" json:"challenges,omitempty"`
	Learnings           []string `yaml:"learnings,omitempty" json:"learnings,omitempty"`
	Timeline            string   `yaml:"timeline,omitempty" json:"timeline,omitempty"`
	TeamSize            string   `yaml:"team_size,omitempty" json:"team_size,omitempty"`
}

// Detail returns the long description, falling back to the card summary.
func (p *Project) Detail() string {
	if p.DetailedDescription != "" {
		return p.DetailedDescription
	}
	return p.Description
}

type SocialLink struct {
	Label string `yaml:"label" json:"label"`
	Href  string `yaml:"href" json:"href"`
}

type Profile struct {
	Name      string       `yaml:"name" json:"name"`
	Tagline   string       `yaml:"tagline" json:"tagline"`
	Roles     []string     `yaml:"roles" json:"roles"`
	Photo     string       `yaml:"photo" json:"photo"`
	Email     string       `yaml:"email" json:"email"`
	Phone     string       `yaml:"phone" json:"phone"`
	Location  string       `yaml:"location" json:"location"`
	Copyright string       `yaml:"copyright" json:"copyright"`
	Bio       []string     `yaml:"bio" json:"bio"`
	Drives    []string     `yaml:"drives" json:"drives"`
	Social    []SocialLink `yaml:"social" json:"social"`
}

type EducationEntry struct {
	Year        string `yaml:"year" json:"year"`
	Degree      string `yaml:"degree" json:"degree"`
	Institution string `yaml:"institution" json:"institution"`
	Score       string `yaml:"score" json:"score"`
	Location    string `yaml:"location" json:"location"`
}

type SkillCategory struct {
	Title  string   `yaml:"title" json:"title"`
	Skills []string `yaml:"skills" json:"skills"`
}

// Catalog is the immutable content set. Project pointers handed out by
// Projects and Project stay valid for the life of the Catalog.
type Catalog struct {
	Profile   Profile          `yaml:"profile" json:"profile"`
	Education []EducationEntry `yaml:"education" json:"education"`
	Skills    []SkillCategory  `yaml:"skills" json:"skills"`
	Entries   []Project        `yaml:"projects" json:"projects"`

	bySlug map[string]*Project
}

// Default parses the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Read parses a catalog from r.
func Read(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) index() error {
	c.bySlug = make(map[string]*Project, len(c.Entries))
	for i := range c.Entries {
		p := &c.Entries[i]
		if p.Slug == "" {
			return fmt.Errorf("project %d (%q): missing slug", i, p.Title)
		}
		if p.Title == "" {
			return fmt.Errorf("project %q: missing title", p.Slug)
		}
		if _, dup := c.bySlug[p.Slug]; dup {
			return fmt.Errorf("project %q: duplicate slug", p.Slug)
		}
		c.bySlug[p.Slug] = p
	}
	return nil
}

// Projects returns the catalog entries in display order.
func (c *Catalog) Projects() []*Project {
	out := make([]*Project, len(c.Entries))
	for i := range c.Entries {
		out[i] = &c.Entries[i]
	}
	return out
}

// Project looks up an entry by slug.
func (c *Catalog) Project(slug string) (*Project, error) {
	p, ok := c.bySlug[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	return p, nil
}

// Contains reports whether p is one of this catalog's own entries.
func (c *Catalog) Contains(p *Project) bool {
	if p == nil {
		return false
	}
	return c.bySlug[p.Slug] == p
}

// Marshal renders the catalog back to YAML.
func (c *Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
