package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/josephlewis42/vmsh/core/logger"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var logsCmd = &cobra.Command{
	Use:     "logs",
	Aliases: []string{"log", "events"},
	Short:   "Explore the shell event log.",
}

// openEventLog opens the named file or the configured event log.
func openEventLog(args []string) (io.ReadCloser, error) {
	if len(args) > 0 {
		return os.Open(args[0])
	}

	config, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return config.ReadEventLog()
}

type updater interface {
	Update(le *logger.LogEntry)
}

// reportRunE reads a log into the report returned by newReport and prints
// it as YAML.
func reportRunE(newReport func() updater) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		fd, err := openEventLog(args)
		if err != nil {
			return err
		}
		defer fd.Close()

		report := newReport()
		if err := logger.ReadJSONLinesLog(fd, report.Update); err != nil {
			return err
		}

		out, err := yaml.Marshal(report)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		return nil
	}
}

var reportCommand = &cobra.Command{
	Use:   "report [FILE]",
	Short: "Show a report of events.",
	Args:  cobra.MaximumNArgs(1),
	RunE: reportRunE(func() updater {
		return &logger.Report{}
	}),
}

var failuresCommand = &cobra.Command{
	Use:   "failures [FILE]",
	Short: "Show unknown commands, syntax errors and non-zero exit statuses.",
	Args:  cobra.MaximumNArgs(1),
	RunE: reportRunE(func() updater {
		return logger.NewFailureReport()
	}),
}

var sessionsCommand = &cobra.Command{
	Use:   "sessions [FILE]",
	Short: "Show the commands run in each session.",
	Args:  cobra.MaximumNArgs(1),
	RunE: reportRunE(func() updater {
		return &logger.SessionReport{}
	}),
}

var catCommand = &cobra.Command{
	Use:   "cat [FILE]",
	Short: "Print the events of a log one per line.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		fd, err := openEventLog(args)
		if err != nil {
			return err
		}
		defer fd.Close()

		w := cmd.OutOrStdout()
		var writeErr error
		err = logger.ReadJSONLinesLog(fd, func(le *logger.LogEntry) {
			payload, err := json.Marshal(le.Payload)
			if err != nil && writeErr == nil {
				writeErr = err
			}
			fmt.Fprintf(w, "%s %s %-16s %s\n", le.Time.Format(time.RFC3339), le.SessionID, le.Type, payload)
		})
		if err != nil {
			return err
		}
		return writeErr
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(reportCommand)
	logsCmd.AddCommand(failuresCommand)
	logsCmd.AddCommand(sessionsCommand)
	logsCmd.AddCommand(catCommand)
}
