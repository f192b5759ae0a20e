package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/five82/wowr/internal/combat"
	"github.com/five82/wowr/internal/combatlog"
	"github.com/five82/wowr/internal/detector"
	"github.com/five82/wowr/internal/diaglog"
	"github.com/five82/wowr/internal/metrics"
	"github.com/five82/wowr/internal/recorder"
	"github.com/five82/wowr/internal/state"
)

const (
	defaultPollInterval = 3 * time.Second
	maxBackoff          = 30 * time.Second
	// minWakeGap keeps a busy combat log from turning file events into a
	// tight scan loop.
	minWakeGap = 500 * time.Millisecond
)

// Poller drives the detector from a single goroutine. Ticks come from the
// interval ticker and, when Watch is set, from writes to the combat log.
type Poller struct {
	Detector       *detector.Detector
	Controller     *recorder.Controller
	Store          *state.Store
	Exporter       *metrics.Exporter // optional
	Log            *diaglog.Logger
	Interval       time.Duration
	LogDir         string
	Pattern        string
	Watch          bool
	TrackRecording bool // query OBS after each tick for the dashboard and metrics

	combat   combat.State
	lastTick time.Time
}

// Run ticks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if p.Log == nil {
		p.Log = diaglog.Discard()
	}

	var wake <-chan struct{}
	if p.Watch {
		wake = p.startWatcher(ctx, interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p.tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-wake:
				if time.Since(p.lastTick) < minWakeGap {
					continue
				}
			}
			break
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	start := time.Now()
	res := p.Detector.Tick(ctx, &p.combat)
	elapsed := time.Since(start)
	p.lastTick = start

	if p.Store != nil {
		p.Store.Update(tickFromResult(res, p.combat))
	}
	if p.Exporter != nil {
		p.Exporter.Observe(res, p.combat, elapsed)
	}
	if !p.TrackRecording || p.Controller == nil {
		return
	}
	status, err := p.Controller.Status(ctx)
	if p.Store != nil {
		p.Store.SetRecording(status, err)
	}
	if err == nil && p.Exporter != nil {
		p.Exporter.SetRecording(status)
	}
}

func tickFromResult(res detector.Result, st combat.State) state.Tick {
	t := state.Tick{
		At:      res.Started,
		Combat:  st,
		LogFile: res.LogFile,
		Halt:    res.Halt.String(),
		Err:     res.Err,
	}
	if res.Event != nil {
		t.Trigger = res.Event.Trigger.String()
	}
	for _, c := range res.Commands {
		t.Commands = append(t.Commands, c.String())
	}
	return t
}

// startWatcher forwards writes to matching files as wake signals. Pending
// wakes coalesce into one.
func (p *Poller) startWatcher(ctx context.Context, interval time.Duration) <-chan struct{} {
	wake := make(chan struct{}, 1)
	go func() {
		failures := 0
		for {
			established, err := p.watch(ctx, wake)
			if ctx.Err() != nil {
				return
			}
			if established {
				failures = 0
			}
			failures++
			delay := calculateBackoff(failures, interval)
			p.Log.Debugf("File watch unavailable, retrying in %s. %v", delay, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
	}()
	return wake
}

func (p *Poller) watch(ctx context.Context, wake chan<- struct{}) (bool, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return false, fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(p.LogDir); err != nil {
		return false, fmt.Errorf("watch %s: %w", p.LogDir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return true, nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return true, errors.New("watcher closed")
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 || !p.matches(ev.Name) {
				continue
			}
			select {
			case wake <- struct{}{}:
			default:
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return true, errors.New("watcher closed")
			}
			return true, err
		}
	}
}

func (p *Poller) matches(path string) bool {
	rel, err := filepath.Rel(p.LogDir, path)
	if err != nil {
		return false
	}
	pattern := p.Pattern
	if pattern == "" {
		pattern = combatlog.DefaultPattern
	}
	ok, err := doublestar.Match(pattern, filepath.ToSlash(rel))
	return err == nil && ok
}

// calculateBackoff doubles base per failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
