package recorder

import (
	"context"
	"sync"
)

// DryRun is an in-memory Capability that tracks recording state without a
// capture application.
type DryRun struct {
	mu       sync.Mutex
	status   Status
	calls    []string
	chapters []string
}

// Ensure DryRun implements Capability at compile time.
var _ Capability = (*DryRun)(nil)

// NewDryRun returns a DryRun starting in the given state.
func NewDryRun(initial Status) *DryRun {
	return &DryRun{status: initial}
}

func (d *DryRun) Status(context.Context) (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status, nil
}

func (d *DryRun) Start(context.Context) error {
	return d.apply("start", func(s *Status) { *s = Status{Active: true} })
}

func (d *DryRun) Stop(context.Context) error {
	return d.apply("stop", func(s *Status) { *s = Status{} })
}

func (d *DryRun) Pause(context.Context) error {
	return d.apply("pause", func(s *Status) { s.Paused = true })
}

func (d *DryRun) Resume(context.Context) error {
	return d.apply("resume", func(s *Status) { s.Paused = false })
}

func (d *DryRun) Split(context.Context) error {
	return d.apply("split", func(*Status) {})
}

func (d *DryRun) CreateChapter(_ context.Context, name string) error {
	return d.apply("chapter", func(*Status) { d.chapters = append(d.chapters, name) })
}

// Calls returns the capability calls made so far, oldest first.
func (d *DryRun) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// Chapters returns the chapter names created so far.
func (d *DryRun) Chapters() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.chapters...)
}

func (d *DryRun) apply(call string, mutate func(*Status)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
	mutate(&d.status)
	return nil
}
