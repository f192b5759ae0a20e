package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/five82/wowr/internal/combat"
	"github.com/five82/wowr/internal/combatlog"
	"github.com/five82/wowr/internal/config"
	"github.com/five82/wowr/internal/detector"
	"github.com/five82/wowr/internal/diaglog"
	"github.com/five82/wowr/internal/recorder"
)

func newMachine(cfg config.Config) combat.Machine {
	return combat.Machine{Variant: cfg.Variant}
}

// Scan runs a single detector tick against a fresh combat state. Commands go
// to an in-memory recorder, so OBS is never touched.
func Scan(ctx context.Context, opts Options) (detector.Result, combat.State, error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return detector.Result{}, combat.State{}, err
	}
	logger := consoleLogger(opts, cfg)

	det := detector.New(detector.Options{
		Resolver:   combatlog.Locator{Dir: cfg.LogDir, Pattern: cfg.LogPattern},
		Machine:    newMachine(cfg),
		Controller: recorder.New(recorder.NewDryRun(recorder.Status{}), logger, recorder.WithSettleDelay(0)),
		Backstop:   cfg.Backstop,
		Log:        logger,
	})
	var st combat.State
	res := det.Tick(ctx, &st)
	return res, st, nil
}

// RecordActions lists the verbs Record accepts.
var RecordActions = []string{"status", "start", "stop", "pause", "resume", "split", "chapter"}

// Record sends one manual command through the idempotent controller. name is
// only used by the chapter action.
func Record(ctx context.Context, opts Options, action, name string) (recorder.Status, *recorder.Result, error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return recorder.Status{}, nil, err
	}
	capability, closeCapability, err := newCapability(cfg, opts.DryRun)
	if err != nil {
		return recorder.Status{}, nil, err
	}
	defer closeCapability()

	controller := recorder.New(capability, consoleLogger(opts, cfg), recorder.WithSettleDelay(cfg.ResumeSettle))

	var res recorder.Result
	switch strings.ToLower(action) {
	case "status":
		status, err := controller.Status(ctx)
		if err != nil {
			return recorder.Status{}, nil, fmt.Errorf("query recording status: %w", err)
		}
		return status, nil, nil
	case "start":
		res = controller.Start(ctx)
	case "stop":
		res = controller.Stop(ctx)
	case "pause":
		res = controller.Pause(ctx)
	case "resume", "unpause":
		res = controller.Unpause(ctx)
	case "split":
		res = controller.Split(ctx)
	case "chapter":
		res = controller.AddChapter(ctx, name)
	default:
		return recorder.Status{}, nil, fmt.Errorf("unknown record action %q (want one of %s)", action, strings.Join(RecordActions, ", "))
	}

	status, _ := controller.Status(ctx)
	return status, &res, nil
}

// consoleLogger echoes to the console only; one-shot commands leave the
// diagnostic file alone.
func consoleLogger(opts Options, cfg config.Config) *diaglog.Logger {
	if opts.Console == nil {
		return diaglog.Discard()
	}
	logger, err := diaglog.Open(diaglog.Options{Console: opts.Console, Debug: cfg.Debug})
	if err != nil {
		return diaglog.Discard()
	}
	return logger
}
