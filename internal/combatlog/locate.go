package combatlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPattern matches the files the game client writes when combat
// logging is enabled.
const DefaultPattern = "WoWCombatLog-*.txt"

// ErrNoLogFile is returned when the log directory holds no matching file.
var ErrNoLogFile = errors.New("no combat log found")

// Locator resolves the active combat log inside a directory.
type Locator struct {
	Dir     string
	Pattern string
}

type candidate struct {
	path    string
	created time.Time
}

// Latest returns the most recently created file matching the pattern.
func (l Locator) Latest() (string, error) {
	if strings.TrimSpace(l.Dir) == "" {
		return "", fmt.Errorf("locate combat log: directory is empty")
	}
	pattern := l.Pattern
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return "", fmt.Errorf("locate combat log: invalid pattern %q", pattern)
	}

	matches, err := doublestar.Glob(os.DirFS(l.Dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return "", fmt.Errorf("locate combat log: %w", err)
	}

	candidates := make([]candidate, 0, len(matches))
	for _, m := range matches {
		path := filepath.Join(l.Dir, filepath.FromSlash(m))
		info, err := os.Stat(path)
		if err != nil {
			// Rotated away between the glob and the stat.
			continue
		}
		candidates = append(candidates, candidate{path: path, created: createdAt(info)})
	}
	latest, ok := pickLatest(candidates)
	if !ok {
		return "", fmt.Errorf("%w in %s matching %s", ErrNoLogFile, l.Dir, pattern)
	}
	return latest, nil
}

// pickLatest prefers the newest creation time and falls back to the larger
// name, which for the client's date-stamped names is also the newer file.
func pickLatest(candidates []candidate) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		switch {
		case c.created.After(best.created):
			best = c
		case c.created.Equal(best.created) && c.path > best.path:
			best = c
		}
	}
	return best.path, true
}
