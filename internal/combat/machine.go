// Package combat tracks raid encounter and dungeon run state and decides which
// recording command a combat log trigger calls for.
package combat

import (
	"fmt"
	"strings"

	"github.com/five82/wowr/internal/combatlog"
)

// Variant selects how raid encounters map onto recording commands.
type Variant int

const (
	// VariantSimple starts a recording per encounter and stops it afterwards.
	VariantSimple Variant = iota
	// VariantChaptered keeps one recording for a raid night, pausing between
	// encounters and adding a chapter marker when the next one starts.
	VariantChaptered
)

// ParseVariant maps a configuration value onto a Variant.
func ParseVariant(value string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "simple":
		return VariantSimple, nil
	case "chaptered", "chapters":
		return VariantChaptered, nil
	default:
		return VariantSimple, fmt.Errorf("unknown variant %q (want simple or chaptered)", value)
	}
}

func (v Variant) String() string {
	if v == VariantChaptered {
		return "chaptered"
	}
	return "simple"
}

// State is the combat state carried between ticks. The zero value means not in
// an encounter and not in a dungeon.
type State struct {
	InEncounter bool
	InDungeon   bool
}

func (s State) String() string {
	return fmt.Sprintf("{dungeon:%t encounter:%t}", s.InDungeon, s.InEncounter)
}

// Command is the recording action a transition asks for.
type Command int

const (
	CommandNone Command = iota
	CommandStart
	CommandStop
	CommandPause
	// CommandBeginSegment starts a recording if none is running, otherwise
	// resumes it and marks a chapter.
	CommandBeginSegment
)

func (c Command) String() string {
	switch c {
	case CommandStart:
		return "start"
	case CommandStop:
		return "stop"
	case CommandPause:
		return "pause"
	case CommandBeginSegment:
		return "begin-segment"
	default:
		return "none"
	}
}

// Verdict classifies what the machine did with a trigger.
type Verdict int

const (
	// VerdictSkip leaves state untouched; the scan keeps looking at older lines.
	VerdictSkip Verdict = iota
	// VerdictIgnore discards a stale trigger but still ends the scan.
	VerdictIgnore
	// VerdictTransition changed state and may carry a command.
	VerdictTransition
)

func (v Verdict) String() string {
	switch v {
	case VerdictIgnore:
		return "ignore"
	case VerdictTransition:
		return "transition"
	default:
		return "skip"
	}
}

// Decision is the outcome of applying one trigger.
type Decision struct {
	Trigger combatlog.Trigger
	Verdict Verdict
	Command Command
	From    State
	To      State
	Reason  string
}

// Decisive reports whether the scan for the current tick should stop.
func (d Decision) Decisive() bool {
	return d.Verdict != VerdictSkip
}

// Machine applies triggers to a State.
type Machine struct {
	Variant Variant
}

// Apply evaluates trig against st, updating st in place on a transition.
func (m Machine) Apply(st *State, trig combatlog.Trigger) Decision {
	d := Decision{Trigger: trig, From: *st}
	chaptered := m.Variant == VariantChaptered

	switch trig {
	case combatlog.ChallengeModeStart:
		if !st.InDungeon {
			// A raid encounter cannot be in progress inside a keystone run.
			st.InDungeon = true
			st.InEncounter = false
			d.transition(CommandStart, "CHALLENGE_MODE_START detected...starting M+ run...")
		} else {
			d.Reason = "already in a dungeon run"
		}

	case combatlog.ChallengeModeEnd:
		switch {
		case st.InDungeon:
			st.InDungeon = false
			d.transition(CommandStop, "CHALLENGE_MODE_END detected...ending M+ run...")
		case chaptered:
			d.ignore("CHALLENGE_MODE_END without a dungeon run in progress")
		default:
			d.Reason = "not in a dungeon run"
		}

	case combatlog.EncounterStart:
		switch {
		case st.InDungeon:
			d.Reason = "dungeon run in progress"
		case st.InEncounter:
			d.Reason = "already in an encounter"
		default:
			st.InEncounter = true
			cmd := CommandStart
			if chaptered {
				cmd = CommandBeginSegment
			}
			d.transition(cmd, "Raid encounter start detected...starting raid encounter...")
		}

	case combatlog.EncounterEnd:
		switch {
		case st.InDungeon:
			d.Reason = "dungeon run in progress"
		case st.InEncounter:
			st.InEncounter = false
			cmd := CommandStop
			if chaptered {
				cmd = CommandPause
			}
			d.transition(cmd, "Raid encounter end detected...ending raid encounter...")
		case chaptered:
			d.ignore("ENCOUNTER_END without an encounter in progress")
		default:
			d.Reason = "not in an encounter"
		}

	default:
		d.Reason = "not a trigger"
	}

	d.To = *st
	return d
}

func (d *Decision) transition(cmd Command, reason string) {
	d.Verdict = VerdictTransition
	d.Command = cmd
	d.Reason = reason
}

func (d *Decision) ignore(reason string) {
	d.Verdict = VerdictIgnore
	d.Reason = reason
}
