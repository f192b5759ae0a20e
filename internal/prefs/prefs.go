// Package prefs persists dashboard preferences in ~/.config/wowr/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds dashboard choices that survive restarts.
type Prefs struct {
	Theme     string `toml:"theme"`
	Follow    bool   `toml:"follow"`     // keep the activity pane pinned to the newest line
	ShowDebug bool   `toml:"show_debug"` // include debug lines in the activity pane
}

const (
	defaultPrefsPath = "~/.config/wowr/prefs.toml"
	defaultTheme     = "Nightfox"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Defaults returns the preferences used before anything is saved.
func Defaults() Prefs {
	return Prefs{Theme: defaultTheme, Follow: true, ShowDebug: true}
}

// Load reads preferences from path. A missing or unreadable file yields
// defaults; preferences never stop the dashboard from starting.
func Load(path string) Prefs {
	p := Defaults()

	resolved, err := resolvePath(path)
	if err != nil {
		return p
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return p
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return Defaults()
	}
	if strings.TrimSpace(p.Theme) == "" {
		p.Theme = defaultTheme
	}
	return p
}

// Save writes preferences to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}
	trimmed := strings.TrimSpace(path)
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	return filepath.Abs(trimmed)
}
