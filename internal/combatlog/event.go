package combatlog

import (
	"strings"
	"time"
)

// Trigger identifies the combat log records that drive recording.
type Trigger int

const (
	TriggerNone Trigger = iota
	ChallengeModeStart
	ChallengeModeEnd
	EncounterStart
	EncounterEnd
)

// markers lists the literal record names in match priority order.
var markers = []struct {
	trigger Trigger
	marker  string
}{
	{ChallengeModeStart, "CHALLENGE_MODE_START"},
	{ChallengeModeEnd, "CHALLENGE_MODE_END"},
	{EncounterStart, "ENCOUNTER_START"},
	{EncounterEnd, "ENCOUNTER_END"},
}

// Triggers returns every trigger in match priority order.
func Triggers() []Trigger {
	out := make([]Trigger, 0, len(markers))
	for _, m := range markers {
		out = append(out, m.trigger)
	}
	return out
}

// Marker returns the literal text that identifies the trigger in a log line.
func (t Trigger) Marker() string {
	for _, m := range markers {
		if m.trigger == t {
			return m.marker
		}
	}
	return ""
}

func (t Trigger) String() string {
	if marker := t.Marker(); marker != "" {
		return marker
	}
	return "NONE"
}

// IsStart reports whether the trigger opens an encounter or a dungeon run.
func (t Trigger) IsStart() bool {
	return t == ChallengeModeStart || t == EncounterStart
}

// Classify returns the trigger whose marker appears anywhere in line.
func Classify(line string) (Trigger, bool) {
	for _, m := range markers {
		if strings.Contains(line, m.marker) {
			return m.trigger, true
		}
	}
	return TriggerNone, false
}

// Event is a classified, timestamped trigger line.
type Event struct {
	Trigger Trigger
	Time    time.Time
	Name    string // encounter or dungeon name when the record carries one
	Line    Line
}

// RecordName returns the first quoted field after the trigger's marker, which
// is the encounter name for ENCOUNTER_* records and the zone name for
// CHALLENGE_MODE_START.
func RecordName(line string, trigger Trigger) string {
	marker := trigger.Marker()
	if marker == "" {
		return ""
	}
	idx := strings.Index(line, marker)
	if idx < 0 {
		return ""
	}
	rest := line[idx+len(marker):]
	open := strings.IndexByte(rest, '"')
	if open < 0 {
		return ""
	}
	rest = rest[open+1:]
	closing := strings.IndexByte(rest, '"')
	if closing < 0 {
		return ""
	}
	return rest[:closing]
}
