package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Relay delivers a filled-in template as an email.
type Relay interface {
	Send(ctx context.Context, serviceID, templateID string, fields map[string]string, publicKey string) error
}

// RelayFunc adapts a function to the Relay interface.
type RelayFunc func(ctx context.Context, serviceID, templateID string, fields map[string]string, publicKey string) error

func (fn RelayFunc) Send(ctx context.Context, serviceID, templateID string, fields map[string]string, publicKey string) error {
	return fn(ctx, serviceID, templateID, fields, publicKey)
}

// RelayConfig identifies the relay service, template and account.
type RelayConfig struct {
	ServiceID  string
	TemplateID string
	PublicKey  string
}

const DefaultEmailJSEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// EmailJSRelay sends through the EmailJS REST API.
type EmailJSRelay struct {
	Endpoint   string
	PrivateKey string
	Client     *http.Client
}

// NewEmailJSRelay returns a relay posting to endpoint, or the public
// EmailJS endpoint when empty.
func NewEmailJSRelay(endpoint, privateKey string) *EmailJSRelay {
	if endpoint == "" {
		endpoint = DefaultEmailJSEndpoint
	}
	return &EmailJSRelay{
		Endpoint:   endpoint,
		PrivateKey: privateKey,
		Client:     &http.Client{Timeout: 15 * time.Second},
	}
}

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

func (r *EmailJSRelay) Send(ctx context.Context, serviceID, templateID string, fields map[string]string, publicKey string) error {
	body, err := json.Marshal(emailJSRequest{
		ServiceID:      serviceID,
		TemplateID:     templateID,
		UserID:         publicKey,
		AccessToken:    r.PrivateKey,
		TemplateParams: fields,
	})
	if err != nil {
		return fmt.Errorf("encode emailjs request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build emailjs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("emailjs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("emailjs: status %d: %s (is API access from non-browser applications enabled?)", resp.StatusCode, strings.TrimSpace(string(msg)))
		}
		return fmt.Errorf("emailjs: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
