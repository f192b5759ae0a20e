// Package detector runs one combat log scan per tick and turns the most recent
// trigger into a recording command.
package detector

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/five82/wowr/internal/combat"
	"github.com/five82/wowr/internal/combatlog"
	"github.com/five82/wowr/internal/recorder"
)

// Halt says why a tick's backward scan stopped.
type Halt int

const (
	HaltStartOfFile Halt = iota
	HaltDecisive
	HaltBackstop
	HaltMalformed
	HaltResolve
	HaltRead
	HaltBusy
)

func (h Halt) String() string {
	switch h {
	case HaltDecisive:
		return "decisive"
	case HaltBackstop:
		return "backstop"
	case HaltMalformed:
		return "malformed"
	case HaltResolve:
		return "resolve_error"
	case HaltRead:
		return "read_error"
	case HaltBusy:
		return "busy"
	default:
		return "start_of_file"
	}
}

// Resolver finds the active combat log. combatlog.Locator implements it.
type Resolver interface {
	Latest() (string, error)
}

// Logger receives the detector's narration.
type Logger interface {
	Infof(format string, args ...any)
	Debugf(format string, args ...any)
}

// Result summarises a tick.
type Result struct {
	Started      time.Time
	LogFile      string
	Halt         Halt
	LinesScanned int
	Event        *combatlog.Event // the decisive trigger, if any
	Decision     combat.Decision  // meaningful when Event is set
	Commands     []recorder.Result
	Err          error // resolution or read failure
}

// Options configure a Detector.
type Options struct {
	Resolver   Resolver
	Machine    combat.Machine
	Controller *recorder.Controller
	Backstop   time.Duration
	Log        Logger
	Now        func() time.Time
}

// Detector scans the active combat log. Ticks never overlap: a Tick entered
// while another is running returns HaltBusy without touching state.
type Detector struct {
	resolver   Resolver
	machine    combat.Machine
	controller *recorder.Controller
	backstop   time.Duration
	log        Logger
	now        func() time.Time

	busy     atomic.Bool
	lastFile string
}

// New builds a Detector.
func New(opts Options) *Detector {
	d := &Detector{
		resolver:   opts.Resolver,
		machine:    opts.Machine,
		controller: opts.Controller,
		backstop:   opts.Backstop,
		log:        opts.Log,
		now:        opts.Now,
	}
	if d.log == nil {
		d.log = nopLogger{}
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Tick scans the newest lines of the active combat log, applies at most one
// decisive trigger to st and issues the resulting recording command.
func (d *Detector) Tick(ctx context.Context, st *combat.State) Result {
	if !d.busy.CompareAndSwap(false, true) {
		return Result{Started: d.now(), Halt: HaltBusy}
	}
	defer d.busy.Store(false)

	now := d.now()
	res := Result{Started: now, Halt: HaltStartOfFile}

	path, err := d.resolver.Latest()
	if err != nil {
		d.log.Infof("Could not find combat log. %v", err)
		res.Halt = HaltResolve
		res.Err = err
		return res
	}
	if path != d.lastFile {
		d.log.Infof("Latest log file: %s", path)
		d.lastFile = path
	}
	res.LogFile = path

	err = combatlog.ReadBackward(path, func(line combatlog.Line) bool {
		res.LinesScanned++

		ts, err := combatlog.ParseTimestamp(line.Text)
		if err != nil {
			d.log.Debugf("Unreadable line, stopping... %v", err)
			res.Halt = HaltMalformed
			return false
		}
		if !combatlog.WithinBackstop(ts, now, d.backstop) {
			d.log.Debugf("Exceeded time backstop, stopping...")
			res.Halt = HaltBackstop
			return false
		}

		trigger, ok := combatlog.Classify(line.Text)
		if !ok {
			return true
		}
		decision := d.machine.Apply(st, trigger)
		if !decision.Decisive() {
			d.log.Debugf("%s already handled (%s)...continuing...", trigger, decision.Reason)
			return true
		}

		res.Event = &combatlog.Event{
			Trigger: trigger,
			Time:    ts,
			Name:    combatlog.RecordName(line.Text, trigger),
			Line:    line,
		}
		res.Decision = decision
		res.Halt = HaltDecisive
		return false
	})
	if err != nil {
		d.log.Infof("Could not read combat log. %v", err)
		res.Halt = HaltRead
		res.Err = err
		return res
	}

	if res.Event != nil {
		res.Commands = d.dispatch(ctx, res.Event, res.Decision)
	}
	return res
}

func (d *Detector) dispatch(ctx context.Context, ev *combatlog.Event, decision combat.Decision) []recorder.Result {
	if decision.Verdict == combat.VerdictIgnore {
		d.log.Infof("Discarding stale %s: %s", ev.Trigger, decision.Reason)
		return nil
	}

	d.log.Infof("%s", decision.Reason)
	d.log.Infof("%s", ev.Line.Text)
	if d.controller == nil {
		return nil
	}

	switch decision.Command {
	case combat.CommandStart:
		d.log.Infof("Changing Recording state to ON")
		return []recorder.Result{d.controller.Start(ctx)}
	case combat.CommandStop:
		d.log.Infof("Changing Recording state to OFF")
		return []recorder.Result{d.controller.Stop(ctx)}
	case combat.CommandPause:
		d.log.Infof("Changing Recording state to PAUSED")
		return []recorder.Result{d.controller.Pause(ctx)}
	case combat.CommandBeginSegment:
		d.log.Infof("Changing Recording state to ON (chapter %q)", ev.Name)
		return d.controller.BeginSegment(ctx, ev.Name)
	default:
		return nil
	}
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Debugf(string, ...any) {}
