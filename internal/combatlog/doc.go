// Package combatlog reads and classifies World of Warcraft combat log lines.
//
// # Overview
//
// The game client appends one record per line to WoWCombatLog-*.txt while
// combat logging is enabled. wowr only cares about four record types, so this
// package deliberately stops short of a real combat log parser: it reads lines
// newest first, parses the leading timestamp and checks for a handful of
// literal markers.
//
// # Reading Backwards
//
// ReadBackward walks a file from its end towards its start in fixed-size
// chunks and hands each complete line to a callback:
//
//	err := combatlog.ReadBackward(path, func(line combatlog.Line) bool {
//		fmt.Println(line.Text)
//		return true // false stops the walk
//	})
//
// Properties:
//
//   - Memory is bounded by the chunk size plus the longest line
//   - A trailing newline at end of file does not produce an empty line
//   - Windows line endings are trimmed
//   - The file handle is released on every return path
//
// # Timestamps
//
// Records start with a local, zone-less timestamp such as
//
//	10/19/2026 21:03:11.482-4  ENCOUNTER_START,2902,"Ulgrax the Devourer",16,20,2657
//
// ParseTimestamp looks at the first 19 characters only, drops fractional
// seconds and any trailing "-" or "." padding, and parses the remainder with
// whole-second precision. Anything else is ErrMalformedTimestamp.
//
// WithinBackstop implements the freshness check used by the detector; a line
// stamped exactly now-backstop is already too old.
//
// # Triggers
//
// Classify performs an unanchored substring match, checking markers in the
// order CHALLENGE_MODE_START, CHALLENGE_MODE_END, ENCOUNTER_START,
// ENCOUNTER_END. RecordName extracts the quoted encounter or zone name used to
// label recording chapters.
//
// # Locating the Active Log
//
// Locator.Latest globs the log directory and returns the most recently
// created match. Call it on every tick: the client starts a new file when
// logging is toggled or the game restarts.
package combatlog
