// Package diaglog writes wowr's diagnostic log: one timestamped line per
// decision, appended to a file next to the combat logs and echoed to the
// console.
package diaglog

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const timeLayout = "2006-01-02 15:04:05.000000"

// Level distinguishes always-on messages from debug chatter.
type Level int

const (
	LevelInfo Level = iota
	LevelDebug
)

// Entry is a single diagnostic line.
type Entry struct {
	Time    time.Time
	Level   Level
	Message string
}

// String renders the entry the way it is written to the file.
func (e Entry) String() string {
	return e.Time.Format(timeLayout) + " - " + e.Message
}

// Options configure a Logger.
type Options struct {
	Path    string    // diagnostic file, empty disables it
	Console io.Writer // console echo, nil disables it
	Debug   bool
	Now     func() time.Time
}

// Logger is safe for concurrent use.
type Logger struct {
	mu        sync.Mutex
	file      *os.File
	fileLog   *log.Logger
	console   *log.Logger
	styles    styles
	debug     bool
	now       func() time.Time
	observers []func(Entry)
}

type styles struct {
	time  lipgloss.Style
	info  lipgloss.Style
	debug lipgloss.Style
	alert lipgloss.Style
}

// Open creates the diagnostic file's directory if needed and opens the file
// for appending.
func Open(opts Options) (*Logger, error) {
	l := &Logger{debug: opts.Debug, now: opts.Now}
	if l.now == nil {
		l.now = time.Now
	}

	if path := strings.TrimSpace(opts.Path); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create diagnostic log dir: %w", err)
		}
		file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open diagnostic log: %w", err)
		}
		l.file = file
		l.fileLog = log.New(file, "", 0)
	}

	if opts.Console != nil {
		l.console = log.New(opts.Console, "", 0)
		r := lipgloss.NewRenderer(opts.Console)
		l.styles = styles{
			time:  r.NewStyle().Foreground(lipgloss.Color("#808080")),
			info:  r.NewStyle(),
			debug: r.NewStyle().Foreground(lipgloss.Color("#87CEEB")),
			alert: r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		}
	}
	return l, nil
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return &Logger{now: time.Now}
}

// Observe registers fn to receive every entry that is written. fn must not
// call back into the Logger.
func (l *Logger) Observe(fn func(Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, fn)
}

// DebugEnabled reports whether Debugf writes anything.
func (l *Logger) DebugEnabled() bool {
	return l.debug
}

// Infof writes a message unconditionally.
func (l *Logger) Infof(format string, args ...any) {
	l.write(LevelInfo, fmt.Sprintf(format, args...))
}

// Debugf writes a message only when debug logging is enabled.
func (l *Logger) Debugf(format string, args ...any) {
	if !l.debug {
		return
	}
	l.write(LevelDebug, fmt.Sprintf(format, args...))
}

// Close releases the diagnostic file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.fileLog = nil
	return err
}

func (l *Logger) write(level Level, msg string) {
	entry := Entry{Time: l.now(), Level: level, Message: msg}

	l.mu.Lock()
	if l.fileLog != nil {
		l.fileLog.Print(entry.String())
	}
	if l.console != nil {
		l.console.Print(l.styles.time.Render(entry.Time.Format(timeLayout)) + " - " + l.styleFor(entry).Render(msg))
	}
	observers := l.observers
	l.mu.Unlock()

	for _, fn := range observers {
		fn(entry)
	}
}

func (l *Logger) styleFor(e Entry) lipgloss.Style {
	if e.Level == LevelDebug {
		return l.styles.debug
	}
	if strings.Contains(e.Message, "failed") || strings.Contains(e.Message, "Could not") {
		return l.styles.alert
	}
	return l.styles.info
}
