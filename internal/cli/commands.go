package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/five82/wowr/internal/app"
	"github.com/five82/wowr/internal/config"
	"github.com/five82/wowr/internal/detector"
	"github.com/five82/wowr/internal/recorder"
)

func newScanCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one detector tick without touching OBS",
		Long: `Scan resolves the active combat log, reads back through the backstop window
and reports the trigger a live run would act on, starting from a fresh
combat state. Commands go to an in-memory recorder.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := options(cmd, v)
			opts.Console = nil
			res, st, err := app.Scan(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printScan(cmd.OutOrStdout(), res, st.String())
			return res.Err
		},
	}
}

func printScan(w io.Writer, res detector.Result, state string) {
	fmt.Fprintf(w, "log file:  %s\n", valueOr(res.LogFile, "-"))
	fmt.Fprintf(w, "halt:      %s after %d line(s)\n", res.Halt, res.LinesScanned)
	if res.Event == nil {
		fmt.Fprintln(w, "trigger:   none within the backstop window")
	} else {
		fmt.Fprintf(w, "trigger:   %s %s\n", res.Event.Trigger, quoteOr(res.Event.Name))
		fmt.Fprintf(w, "decision:  %s (%s)\n", res.Decision.Verdict, res.Decision.Reason)
		fmt.Fprintf(w, "command:   %s\n", res.Decision.Command)
	}
	fmt.Fprintf(w, "state:     %s\n", state)
	for _, c := range res.Commands {
		fmt.Fprintf(w, "recorder:  %s\n", c)
	}
}

func newRecordCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:       "record <" + strings.Join(app.RecordActions, "|") + "> [chapter name]",
		Short:     "Send a single recording command to OBS",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: app.RecordActions,
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 2 {
				name = args[1]
			}
			status, res, err := app.Record(cmd.Context(), options(cmd, v), args[0], name)
			if err != nil {
				return err
			}
			printRecord(cmd.OutOrStdout(), status, res)
			if res != nil && res.Outcome == recorder.OutcomeFailed {
				return res.Err
			}
			return nil
		},
	}
}

func printRecord(w io.Writer, status recorder.Status, res *recorder.Result) {
	if res != nil {
		fmt.Fprintf(w, "%s\n", res)
	}
	fmt.Fprintf(w, "recording: %s\n", status)
}

func newConfigCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig(options(cmd, v))
			if err != nil {
				return err
			}
			data, err := config.Encode(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func quoteOr(s string) string {
	if s == "" {
		return ""
	}
	return fmt.Sprintf("%q", s)
}
