package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/five82/wowr/internal/combat"
	"github.com/five82/wowr/internal/combatlog"
)

// Config captures everything wowr needs to watch a combat log and drive OBS.
type Config struct {
	LogDir        string
	LogPattern    string
	DiagnosticLog string
	Interval      time.Duration
	Backstop      time.Duration
	Debug         bool
	Variant       combat.Variant
	ResumeSettle  time.Duration
	WatchEvents   bool
	MetricsAddr   string
	OBS           OBS
}

// OBS holds the obs-websocket connection settings.
type OBS struct {
	Address  string
	Password string
	Timeout  time.Duration
}

const (
	defaultConfigPath    = "~/.config/wowr/config.toml"
	defaultUnixLogDir    = "~/Games/World of Warcraft/_retail_/Logs"
	defaultWindowsLogDir = `C:\Games\World of Warcraft\_retail_\Logs`
	defaultDiagnostic    = "wowr_log.txt"
	defaultInterval      = 3 * time.Second
	defaultBackstop      = 10 * time.Second
	defaultSettle        = time.Second
	defaultOBSAddress    = "127.0.0.1:4455"
	defaultOBSTimeout    = 5 * time.Second

	minInterval = 250 * time.Millisecond
	minBackstop = time.Second
	maxBackstop = time.Minute
)

// raw mirrors the file format; durations are strings such as "10s".
type raw struct {
	LogDir        string `toml:"log_dir" yaml:"log_dir"`
	LogPattern    string `toml:"log_pattern" yaml:"log_pattern"`
	DiagnosticLog string `toml:"diagnostic_log" yaml:"diagnostic_log"`
	Interval      string `toml:"interval" yaml:"interval"`
	Backstop      string `toml:"backstop" yaml:"backstop"`
	Debug         *bool  `toml:"debug" yaml:"debug"`
	Variant       string `toml:"variant" yaml:"variant"`
	ResumeSettle  string `toml:"resume_settle" yaml:"resume_settle"`
	WatchEvents   bool   `toml:"watch_events" yaml:"watch_events"`
	MetricsAddr   string `toml:"metrics_addr" yaml:"metrics_addr"`
	OBS           rawOBS `toml:"obs" yaml:"obs"`
}

type rawOBS struct {
	Address  string `toml:"address" yaml:"address"`
	Password string `toml:"password" yaml:"password"`
	Timeout  string `toml:"timeout" yaml:"timeout"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	logDir := defaultLogDir()
	return Config{
		LogDir:        logDir,
		LogPattern:    combatlog.DefaultPattern,
		DiagnosticLog: filepath.Join(logDir, defaultDiagnostic),
		Interval:      defaultInterval,
		Backstop:      defaultBackstop,
		Debug:         true,
		Variant:       combat.VariantSimple,
		ResumeSettle:  defaultSettle,
		OBS: OBS{
			Address: defaultOBSAddress,
			Timeout: defaultOBSTimeout,
		},
	}
}

// Load locates and parses the wowr config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var r raw
	switch strings.ToLower(filepath.Ext(resolved)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &r)
	default:
		err = toml.Unmarshal(data, &r)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return fromRaw(r)
}

func fromRaw(r raw) (Config, error) {
	cfg := Default()

	if dir := strings.TrimSpace(r.LogDir); dir != "" {
		cfg.LogDir = mustExpand(dir)
		cfg.DiagnosticLog = filepath.Join(cfg.LogDir, defaultDiagnostic)
	}
	if pattern := strings.TrimSpace(r.LogPattern); pattern != "" {
		cfg.LogPattern = pattern
	}
	if diag := strings.TrimSpace(r.DiagnosticLog); diag != "" {
		cfg.DiagnosticLog = mustExpand(diag)
	}
	if r.Debug != nil {
		cfg.Debug = *r.Debug
	}
	cfg.WatchEvents = r.WatchEvents
	cfg.MetricsAddr = strings.TrimSpace(r.MetricsAddr)

	variant, err := combat.ParseVariant(r.Variant)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Variant = variant

	for _, d := range []struct {
		name  string
		value string
		dest  *time.Duration
	}{
		{"interval", r.Interval, &cfg.Interval},
		{"backstop", r.Backstop, &cfg.Backstop},
		{"resume_settle", r.ResumeSettle, &cfg.ResumeSettle},
		{"obs.timeout", r.OBS.Timeout, &cfg.OBS.Timeout},
	} {
		if strings.TrimSpace(d.value) == "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.value))
		if err != nil {
			return Config{}, fmt.Errorf("parse config: %s: %w", d.name, err)
		}
		*d.dest = parsed
	}

	if addr := strings.TrimSpace(r.OBS.Address); addr != "" {
		cfg.OBS.Address = addr
	}
	cfg.OBS.Password = r.OBS.Password

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges that would make the detector misbehave.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.LogDir) == "" {
		errs = append(errs, errors.New("log_dir is required"))
	}
	if c.Interval < minInterval {
		errs = append(errs, fmt.Errorf("interval %s is below %s", c.Interval, minInterval))
	}
	if c.Backstop < minBackstop || c.Backstop > maxBackstop {
		errs = append(errs, fmt.Errorf("backstop %s outside %s..%s", c.Backstop, minBackstop, maxBackstop))
	}
	if c.ResumeSettle < 0 {
		errs = append(errs, fmt.Errorf("resume_settle %s is negative", c.ResumeSettle))
	}
	if c.OBS.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("obs.timeout %s must be positive", c.OBS.Timeout))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Overrides carries values from flags or the environment. Zero values leave
// the loaded configuration alone.
type Overrides struct {
	LogDir      string
	Variant     string
	Interval    time.Duration
	Backstop    time.Duration
	Debug       *bool
	MetricsAddr string
	OBSAddress  string
	OBSPassword string
}

// Apply merges o into c and re-validates the result.
func (c Config) Apply(o Overrides) (Config, error) {
	if dir := strings.TrimSpace(o.LogDir); dir != "" {
		defaultDiag := filepath.Join(c.LogDir, defaultDiagnostic)
		c.LogDir = mustExpand(dir)
		if c.DiagnosticLog == defaultDiag {
			c.DiagnosticLog = filepath.Join(c.LogDir, defaultDiagnostic)
		}
	}
	if strings.TrimSpace(o.Variant) != "" {
		variant, err := combat.ParseVariant(o.Variant)
		if err != nil {
			return Config{}, err
		}
		c.Variant = variant
	}
	if o.Interval > 0 {
		c.Interval = o.Interval
	}
	if o.Backstop > 0 {
		c.Backstop = o.Backstop
	}
	if o.Debug != nil {
		c.Debug = *o.Debug
	}
	if addr := strings.TrimSpace(o.MetricsAddr); addr != "" {
		c.MetricsAddr = addr
	}
	if addr := strings.TrimSpace(o.OBSAddress); addr != "" {
		c.OBS.Address = addr
	}
	if o.OBSPassword != "" {
		c.OBS.Password = o.OBSPassword
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Encode renders c as TOML in the same shape Load accepts. The OBS password is
// masked.
func Encode(c Config) ([]byte, error) {
	debug := c.Debug
	r := raw{
		LogDir:        c.LogDir,
		LogPattern:    c.LogPattern,
		DiagnosticLog: c.DiagnosticLog,
		Interval:      c.Interval.String(),
		Backstop:      c.Backstop.String(),
		Debug:         &debug,
		Variant:       c.Variant.String(),
		ResumeSettle:  c.ResumeSettle.String(),
		WatchEvents:   c.WatchEvents,
		MetricsAddr:   c.MetricsAddr,
		OBS: rawOBS{
			Address: c.OBS.Address,
			Timeout: c.OBS.Timeout.String(),
		},
	}
	if c.OBS.Password != "" {
		r.OBS.Password = "********"
	}
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

func defaultLogDir() string {
	if runtime.GOOS == "windows" {
		return defaultWindowsLogDir
	}
	return mustExpand(defaultUnixLogDir)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
