// Package hero drives the CV download button of the hero banner.
package hero

import (
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"
)

type Status int

const (
	Idle Status = iota
	Downloading
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Downloading:
		return "downloading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Label is the button caption for the status.
func (s Status) Label() string {
	switch s {
	case Downloading:
		return "Downloading..."
	case Success:
		return "Downloaded!"
	case Error:
		return "Try Again"
	default:
		return "Download CV"
	}
}

const (
	SimulatedDelay = 800 * time.Millisecond
	SuccessHold    = 2 * time.Second
	ErrorHold      = 3 * time.Second
)

// Timer is the handle returned by Clock.AfterFunc.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock uses the time package.
var RealClock Clock = realClock{}

// Saver is the save primitive behind the button.
type Saver interface {
	Save() error
}

type SaverFunc func() error

func (fn SaverFunc) Save() error { return fn() }

// FileSaver checks that the bundled asset at Path can be served.
type FileSaver struct {
	Path string
}

func (s FileSaver) Save() error {
	info, err := os.Stat(s.Path)
	if err != nil {
		return fmt.Errorf("cv asset: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("cv asset %s: %w", s.Path, fs.ErrInvalid)
	}
	if info.Size() == 0 {
		return fmt.Errorf("cv asset %s is empty", s.Path)
	}
	return nil
}

// Download is the status machine for one visitor's button:
// Idle -> Downloading -> Success -> Idle, or Downloading -> Error -> Idle.
// Close cancels pending timers; no transition fires afterwards.
type Download struct {
	clock    Clock
	saver    Saver
	onChange func(Status)

	mu      sync.Mutex
	status  Status
	lastErr error
	pending Timer
	gen     uint64
	closed  bool
}

type Option func(*Download)

func WithClock(c Clock) Option {
	return func(d *Download) { d.clock = c }
}

// OnChange registers an observer called after every transition, outside
// the lock.
func OnChange(fn func(Status)) Option {
	return func(d *Download) { d.onChange = fn }
}

func NewDownload(saver Saver, opts ...Option) *Download {
	d := &Download{clock: RealClock, saver: saver}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// StartDownload runs the save primitive and reports the outcome through
// the status. It returns false, doing nothing, while a download is running.
func (d *Download) StartDownload() bool {
	d.mu.Lock()
	if d.closed || d.status == Downloading {
		d.mu.Unlock()
		return false
	}
	d.cancelLocked()
	d.status = Downloading
	d.lastErr = nil
	gen := d.gen
	d.mu.Unlock()
	d.notify(Downloading)

	if err := d.saver.Save(); err != nil {
		d.finish(gen, Error, ErrorHold, err)
		return true
	}

	d.mu.Lock()
	if d.gen == gen && !d.closed {
		d.pending = d.clock.AfterFunc(SimulatedDelay, func() {
			d.finish(gen, Success, SuccessHold, nil)
		})
	}
	d.mu.Unlock()
	return true
}

func (d *Download) finish(gen uint64, s Status, hold time.Duration, err error) {
	d.mu.Lock()
	if d.gen != gen || d.closed {
		d.mu.Unlock()
		return
	}
	d.status = s
	d.lastErr = err
	d.pending = d.clock.AfterFunc(hold, func() { d.reset(gen) })
	d.mu.Unlock()
	d.notify(s)
}

func (d *Download) reset(gen uint64) {
	d.mu.Lock()
	if d.gen != gen || d.closed {
		d.mu.Unlock()
		return
	}
	d.status = Idle
	d.pending = nil
	d.mu.Unlock()
	d.notify(Idle)
}

func (d *Download) cancelLocked() {
	d.gen++
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}

func (d *Download) notify(s Status) {
	if d.onChange != nil {
		d.onChange(s)
	}
}

func (d *Download) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Err returns the save error behind the current Error status.
func (d *Download) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// Close cancels pending timers. It is safe to call more than once.
func (d *Download) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.cancelLocked()
	d.closed = true
	return nil
}
