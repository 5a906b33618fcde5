package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"lector/internal/logstream"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			opts := logstream.Options{Lines: lines, Follow: follow}
			onLine := func(line string) {
				fmt.Fprintln(out, line)
			}

			client, err := ctx.dialClient()
			if err == nil {
				defer client.Close()
				printed, streamErr := logstream.Stream(cmd.Context(), client, "", opts, onLine)
				if streamErr != nil {
					return streamErr
				}
				if !printed && !follow {
					fmt.Fprintln(out, "No log entries available")
				}
				return nil
			}

			// Daemon unreachable: tail the shared log file directly.
			cfg, cfgErr := ctx.ensureConfig()
			if cfgErr != nil {
				return cfgErr
			}
			logPath := filepath.Join(cfg.Paths.LogDir, "lector.log")
			printed, streamErr := logstream.Stream(cmd.Context(), nil, logPath, opts, onLine)
			if streamErr != nil {
				return streamErr
			}
			if !printed && !follow {
				fmt.Fprintln(out, "No log entries available")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	return cmd
}
