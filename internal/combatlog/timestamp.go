package combatlog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	timestampWidth = 19
	// Month, day and hour accept one or two digits.
	timestampLayout = "1/2/2006 15:04:05"
)

// ErrMalformedTimestamp reports a line whose leading timestamp cannot be parsed.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// ParseTimestamp parses the whole-second local timestamp at the start of a
// combat log line. Fractional seconds and the trailing "-"/"." markers the
// client pads the field with are discarded.
func ParseTimestamp(line string) (time.Time, error) {
	prefix := line
	if len(prefix) > timestampWidth {
		prefix = prefix[:timestampWidth]
	}
	if idx := strings.IndexByte(prefix, '.'); idx >= 0 {
		if strings.Trim(prefix[idx:], "0123456789-.") != "" {
			return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, prefix)
		}
		prefix = prefix[:idx]
	}
	prefix = strings.TrimRight(prefix, "-.")

	ts, err := time.ParseInLocation(timestampLayout, prefix, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, prefix)
	}
	return ts, nil
}

// WithinBackstop reports whether ts is strictly newer than now minus backstop.
func WithinBackstop(ts, now time.Time, backstop time.Duration) bool {
	return ts.After(now.Add(-backstop))
}
