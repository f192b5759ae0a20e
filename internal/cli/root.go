// Package cli defines the wowr command tree.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/five82/wowr/internal/app"
	"github.com/five82/wowr/internal/config"
)

// NewRootCommand builds the wowr command tree. Every persistent flag can also
// be set through a WOWR_* environment variable, for example WOWR_LOG_DIR or
// WOWR_OBS_PASSWORD.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("wowr")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "wowr",
		Short: "Record WoW raid encounters and Mythic+ runs with OBS",
		Long: `wowr watches the World of Warcraft combat log and drives OBS recording.

ENCOUNTER_START and CHALLENGE_MODE_START start a recording; the matching END
records stop it (or pause it in the chaptered variant, which marks a chapter
per encounter). Running wowr without a subcommand is the same as "wowr run".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), options(cmd, v))
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default: ~/.config/wowr/config.toml)")
	flags.String("log-dir", "", "directory holding WoWCombatLog-*.txt")
	flags.String("variant", "", "recording variant: simple or chaptered")
	flags.Duration("interval", 0, "tick interval (default 3s)")
	flags.Duration("backstop", 0, "ignore combat log lines older than this (default 10s)")
	flags.Bool("debug", true, "write debug lines to the diagnostic log")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")
	flags.String("obs-address", "", "obs-websocket address (default 127.0.0.1:4455)")
	flags.String("obs-password", "", "obs-websocket password")
	flags.Bool("dry-run", false, "track recording state in memory instead of talking to OBS")
	flags.Bool("tui", false, "show the terminal dashboard")
	cobra.CheckErr(v.BindPFlags(flags))

	root.AddCommand(
		newRunCommand(v),
		newScanCommand(v),
		newRecordCommand(v),
		newConfigCommand(v),
	)
	return root
}

func newRunCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Watch the combat log and control OBS until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), options(cmd, v))
		},
	}
}

// options maps flags and WOWR_* variables onto app options.
func options(cmd *cobra.Command, v *viper.Viper) app.Options {
	o := app.Options{
		ConfigPath: v.GetString("config"),
		DryRun:     v.GetBool("dry-run"),
		TUI:        v.GetBool("tui"),
		Console:    cmd.OutOrStdout(),
		Overrides: config.Overrides{
			LogDir:      v.GetString("log-dir"),
			Variant:     v.GetString("variant"),
			Interval:    v.GetDuration("interval"),
			Backstop:    v.GetDuration("backstop"),
			MetricsAddr: v.GetString("metrics-addr"),
			OBSAddress:  v.GetString("obs-address"),
			OBSPassword: v.GetString("obs-password"),
		},
	}
	if v.IsSet("debug") {
		debug := v.GetBool("debug")
		o.Overrides.Debug = &debug
	}
	return o
}
