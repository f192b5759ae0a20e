package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/five82/wowr/internal/combatlog"
	"github.com/five82/wowr/internal/config"
	"github.com/five82/wowr/internal/detector"
	"github.com/five82/wowr/internal/diaglog"
	"github.com/five82/wowr/internal/metrics"
	"github.com/five82/wowr/internal/obsws"
	"github.com/five82/wowr/internal/recorder"
	"github.com/five82/wowr/internal/state"
	"github.com/five82/wowr/internal/ui"
)

// Options configure a wowr run.
type Options struct {
	ConfigPath string // empty uses ~/.config/wowr/config.toml
	Overrides  config.Overrides
	DryRun     bool      // track recording state in memory instead of OBS
	TUI        bool      // show the dashboard instead of echoing log lines
	Console    io.Writer // console echo; nil uses stdout
}

// LoadConfig reads the config file and applies flag and environment overrides.
func LoadConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg, err = cfg.Apply(opts.Overrides)
	if err != nil {
		return config.Config{}, fmt.Errorf("apply overrides: %w", err)
	}
	return cfg, nil
}

// Run watches the combat log until the context is cancelled or the dashboard
// exits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	if opts.TUI {
		console = nil
	}
	logger, err := diaglog.Open(diaglog.Options{
		Path:    cfg.DiagnosticLog,
		Console: console,
		Debug:   cfg.Debug,
	})
	if err != nil {
		return err
	}
	defer logger.Close()

	store := &state.Store{}
	store.SetVariant(cfg.Variant)
	logger.Observe(store.Append)

	logSettings(logger, cfg, opts.DryRun)

	capability, closeCapability, err := newCapability(cfg, opts.DryRun)
	if err != nil {
		return err
	}
	defer closeCapability()

	controller := recorder.New(capability, logger, recorder.WithSettleDelay(cfg.ResumeSettle))
	det := detector.New(detector.Options{
		Resolver:   combatlog.Locator{Dir: cfg.LogDir, Pattern: cfg.LogPattern},
		Machine:    newMachine(cfg),
		Controller: controller,
		Backstop:   cfg.Backstop,
		Log:        logger,
	})

	var exporter *metrics.Exporter
	if cfg.MetricsAddr != "" {
		exporter = metrics.NewExporter(cfg.MetricsAddr)
		go func() {
			if err := exporter.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Infof("Metrics server stopped. %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = exporter.Shutdown(shutdownCtx)
		}()
		logger.Infof("Serving metrics on %s", cfg.MetricsAddr)
	}

	p := &Poller{
		Detector:       det,
		Controller:     controller,
		Store:          store,
		Exporter:       exporter,
		Log:            logger,
		Interval:       cfg.Interval,
		LogDir:         cfg.LogDir,
		Pattern:        cfg.LogPattern,
		Watch:          cfg.WatchEvents,
		TrackRecording: opts.TUI || exporter != nil,
	}

	if !opts.TUI {
		p.Run(ctx)
		logger.Infof("Stopping run")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(runCtx)
	}()

	uiErr := ui.Run(ui.Options{
		Context:  runCtx,
		Store:    store,
		Config:   cfg,
		DryRun:   opts.DryRun,
		PollTick: time.Second,
	})
	cancel()
	<-done
	logger.Infof("Stopping run")
	return uiErr
}

func logSettings(logger *diaglog.Logger, cfg config.Config, dryRun bool) {
	logger.Infof("Starting run")
	logger.Infof("Settings: log_dir=%s pattern=%s variant=%s interval=%s backstop=%s debug=%t obs=%s dry_run=%t",
		cfg.LogDir, cfg.LogPattern, cfg.Variant, cfg.Interval, cfg.Backstop, cfg.Debug, cfg.OBS.Address, dryRun)
}

func newCapability(cfg config.Config, dryRun bool) (recorder.Capability, func(), error) {
	if dryRun {
		return recorder.NewDryRun(recorder.Status{}), func() {}, nil
	}
	client, err := obsws.NewClient(cfg.OBS.Address, cfg.OBS.Password, cfg.OBS.Timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("init obs client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}
