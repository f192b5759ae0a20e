package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/wowr/internal/combat"
	"github.com/five82/wowr/internal/diaglog"
	"github.com/five82/wowr/internal/recorder"
)

// maxEntries bounds the diagnostic lines kept for display.
const maxEntries = 200

// Tick is what the poller reports after each detector pass.
type Tick struct {
	At       time.Time
	Combat   combat.State
	LogFile  string
	Halt     string
	Trigger  string   // decisive trigger, empty when none
	Commands []string // recorder results in issue order
	Err      error    // resolution or read failure
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Variant             combat.Variant
	Combat              combat.State
	LogFile             string
	LastTick            time.Time
	LastHalt            string
	LastTrigger         string
	LastTriggerAt       time.Time
	LastCommands        []string
	Ticks               int
	Recording           recorder.Status
	HasRecording        bool
	RecordingError      error
	LastError           error
	ConsecutiveFailures int // ticks in a row that could not read the log
	Entries             []diaglog.Entry
}

// IsOffline returns true when the combat log has been unreadable for multiple ticks.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// SetVariant records the configured recording variant.
func (s *Store) SetVariant(v combat.Variant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Variant = v
}

// Update folds a tick into the snapshot. A tick carrying an error keeps the
// previous log file and trigger but still advances the combat state and tick
// time.
func (s *Store) Update(t Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Ticks++
	s.snapshot.LastTick = t.At
	s.snapshot.LastHalt = t.Halt
	s.snapshot.Combat = t.Combat

	if t.Err != nil {
		s.snapshot.LastError = t.Err
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.LogFile = t.LogFile
	if t.Trigger != "" {
		s.snapshot.LastTrigger = t.Trigger
		s.snapshot.LastTriggerAt = t.At
		s.snapshot.LastCommands = cloneStrings(t.Commands)
	}
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// SetRecording stores the capture application's recording state. On error
// the previous state is kept.
func (s *Store) SetRecording(status recorder.Status, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.RecordingError = err
		return
	}
	s.snapshot.Recording = status
	s.snapshot.HasRecording = true
	s.snapshot.RecordingError = nil
}

// Append adds a diagnostic entry, dropping the oldest beyond the retention limit.
func (s *Store) Append(e diaglog.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Entries = append(s.snapshot.Entries, e)
	if over := len(s.snapshot.Entries) - maxEntries; over > 0 {
		s.snapshot.Entries = append([]diaglog.Entry(nil), s.snapshot.Entries[over:]...)
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.LastCommands = cloneStrings(s.snapshot.LastCommands)
	snap.Entries = cloneEntries(s.snapshot.Entries)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	if s.snapshot.RecordingError != nil {
		snap.RecordingError = fmt.Errorf("%w", s.snapshot.RecordingError)
	}
	return snap
}

func cloneStrings(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	dup := make([]string, len(items))
	copy(dup, items)
	return dup
}

func cloneEntries(items []diaglog.Entry) []diaglog.Entry {
	if len(items) == 0 {
		return nil
	}
	dup := make([]diaglog.Entry, len(items))
	copy(dup, items)
	return dup
}
