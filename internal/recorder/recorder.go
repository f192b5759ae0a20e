// Package recorder issues idempotent recording commands against a capture
// application.
//
// Every command reads the current recording state first and does nothing when
// the requested transition already holds. Failures from the capture
// application are logged and reported in the returned Result; they are never
// returned as errors so a failed start or stop cannot take down the caller's
// loop.
package recorder

import (
	"context"
	"fmt"
	"time"
)

// Status is the recording state reported by the capture application.
type Status struct {
	Active bool
	Paused bool
}

func (s Status) String() string {
	switch {
	case s.Active && s.Paused:
		return "paused"
	case s.Active:
		return "recording"
	default:
		return "idle"
	}
}

// Capability is the control surface of the capture application. Each call may
// fail independently.
type Capability interface {
	Status(ctx context.Context) (Status, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Split(ctx context.Context) error
	CreateChapter(ctx context.Context, name string) error
}

// Logger receives one line per decision the controller makes.
type Logger interface {
	Infof(format string, args ...any)
}

// Action names a controller command.
type Action int

const (
	ActionStart Action = iota
	ActionStop
	ActionPause
	ActionUnpause
	ActionSplit
	ActionChapter
)

var actionWords = map[Action]struct{ verb, begin, done string }{
	ActionStart:   {"start", "Recording starting...", "Recording started..."},
	ActionStop:    {"stop", "Recording stopping...", "Recording stopped..."},
	ActionPause:   {"pause", "Recording pausing...", "Recording paused..."},
	ActionUnpause: {"unpause", "Recording resuming...", "Recording resumed..."},
	ActionSplit:   {"split", "Recording splitting...", "Recording split into a new file..."},
	ActionChapter: {"add chapter", "Adding chapter marker...", "Chapter marker added..."},
}

func (a Action) String() string {
	return actionWords[a].verb
}

// Outcome reports what happened to a command.
type Outcome int

const (
	OutcomeIssued Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIssued:
		return "issued"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Result describes a single command.
type Result struct {
	Action  Action
	Outcome Outcome
	Before  Status // state observed before the command
	Reason  string // why a command was skipped
	Err     error  // set when Outcome is OutcomeFailed
}

func (r Result) String() string {
	switch r.Outcome {
	case OutcomeSkipped:
		return fmt.Sprintf("%s skipped: %s", r.Action, r.Reason)
	case OutcomeFailed:
		return fmt.Sprintf("%s failed: %v", r.Action, r.Err)
	default:
		return fmt.Sprintf("%s issued", r.Action)
	}
}

const defaultSettleDelay = time.Second

// Controller wraps a Capability with idempotent commands.
type Controller struct {
	capability Capability
	log        Logger
	settle     time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option customises a Controller.
type Option func(*Controller)

// WithSettleDelay sets the pause between resuming a recording and adding the
// chapter marker that follows it.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.settle = d
		}
	}
}

// New builds a Controller. A nil logger discards messages.
func New(capability Capability, log Logger, opts ...Option) *Controller {
	if log == nil {
		log = discard{}
	}
	c := &Controller{
		capability: capability,
		log:        log,
		settle:     defaultSettleDelay,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status queries the capture application.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	return c.capability.Status(ctx)
}

// Start begins a recording unless one is already running. A paused recording
// is resumed instead of starting a second one.
func (c *Controller) Start(ctx context.Context) Result {
	var paused bool
	return c.run(ctx, ActionStart, func(s Status) string {
		if s.Active && !s.Paused {
			return "Recording already active...skipping..."
		}
		paused = s.Active
		return ""
	}, func(ctx context.Context) error {
		if paused {
			c.log.Infof("Recording paused...resuming instead...")
			return c.capability.Resume(ctx)
		}
		return c.capability.Start(ctx)
	})
}

// Stop ends the current recording.
func (c *Controller) Stop(ctx context.Context) Result {
	return c.run(ctx, ActionStop, func(s Status) string {
		if !s.Active {
			return "Recording already stopped...skipping"
		}
		return ""
	}, c.capability.Stop)
}

// Pause pauses the current recording.
func (c *Controller) Pause(ctx context.Context) Result {
	return c.run(ctx, ActionPause, func(s Status) string {
		switch {
		case !s.Active:
			return "Recording not active...nothing to pause"
		case s.Paused:
			return "Recording already paused...skipping"
		}
		return ""
	}, c.capability.Pause)
}

// Unpause resumes a paused recording.
func (c *Controller) Unpause(ctx context.Context) Result {
	return c.run(ctx, ActionUnpause, func(s Status) string {
		switch {
		case !s.Active:
			return "Recording not active...nothing to resume"
		case !s.Paused:
			return "Recording not paused...skipping"
		}
		return ""
	}, c.capability.Resume)
}

// Split closes the current recording file and continues in a new one.
func (c *Controller) Split(ctx context.Context) Result {
	return c.run(ctx, ActionSplit, func(s Status) string {
		if !s.Active {
			return "Recording not active...nothing to split"
		}
		return ""
	}, c.capability.Split)
}

// AddChapter inserts a chapter marker into the current recording.
func (c *Controller) AddChapter(ctx context.Context, name string) Result {
	return c.run(ctx, ActionChapter, func(s Status) string {
		if !s.Active {
			return "Recording not active...skipping chapter"
		}
		return ""
	}, func(ctx context.Context) error {
		return c.capability.CreateChapter(ctx, name)
	})
}

// BeginSegment makes sure a recording is running for a new encounter: it
// starts one when idle, resumes and marks a chapter when paused, and only
// marks a chapter when already recording.
func (c *Controller) BeginSegment(ctx context.Context, name string) []Result {
	status, err := c.capability.Status(ctx)
	if err != nil {
		c.log.Infof("Could not read recording state. %v", err)
		return []Result{{Action: ActionStart, Outcome: OutcomeFailed, Err: fmt.Errorf("query status: %w", err)}}
	}

	switch {
	case !status.Active:
		return []Result{c.Start(ctx)}
	case status.Paused:
		resumed := c.Unpause(ctx)
		if resumed.Outcome == OutcomeFailed {
			return []Result{resumed}
		}
		if resumed.Outcome == OutcomeIssued && c.settle > 0 {
			if err := c.sleep(ctx, c.settle); err != nil {
				c.log.Infof("Chapter skipped, interrupted while waiting for recording to resume. %v", err)
				return []Result{resumed}
			}
		}
		return []Result{resumed, c.AddChapter(ctx, name)}
	default:
		return []Result{c.AddChapter(ctx, name)}
	}
}

func (c *Controller) run(ctx context.Context, action Action, satisfied func(Status) string, do func(context.Context) error) (res Result) {
	words := actionWords[action]
	res.Action = action

	status, err := c.capability.Status(ctx)
	if err != nil {
		c.log.Infof("Could not read recording state before %s. %v", words.verb, err)
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("query status: %w", err)
		return res
	}
	res.Before = status

	if reason := satisfied(status); reason != "" {
		c.log.Infof("%s", reason)
		res.Outcome = OutcomeSkipped
		res.Reason = reason
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("%s recording: panic: %v", words.verb, r)
			c.log.Infof("Recording failed to %s. %v", words.verb, res.Err)
		}
	}()

	c.log.Infof("%s", words.begin)
	if err := do(ctx); err != nil {
		c.log.Infof("Recording failed to %s. %v", words.verb, err)
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("%s recording: %w", words.verb, err)
		return res
	}
	c.log.Infof("%s", words.done)
	res.Outcome = OutcomeIssued
	return res
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type discard struct{}

func (discard) Infof(string, ...any) {}
