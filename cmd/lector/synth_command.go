package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lector/internal/api"
	"lector/internal/logging"
	"lector/internal/voice"
)

func newSynthCommand(ctx *commandContext) *cobra.Command {
	var voiceName string
	var profileName string
	var allowDuplicate bool

	cmd := &cobra.Command{
		Use:   "synth <book>",
		Short: "Narrate a single book end to end without the daemon",
		Long: `Narrate one book through the full pipeline: plan, synthesize, export, and
organize into the library. The run uses the shared queue database, so progress
is visible to the daemon and the queue commands, but no daemon needs to be
running.

Examples:
  lector synth book.epub
  lector synth book.epub --voice sage
  lector synth book.epub --profile drama --allow-duplicate`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			cfg, err = voice.ApplyProfile(cfg, profileName)
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:       ctx.resolvedLogLevel(cfg),
				Format:      cfg.Logging.Format,
				OutputPaths: []string{"stdout"},
				Development: ctx.logDevelopment(cfg),
			})
			if err != nil {
				return fmt.Errorf("setup logging: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "🎙️  Narrating book: %s\n\n", args[0])

			result, err := api.SynthesizeBook(cmd.Context(), api.SynthesizeBookRequest{
				Config:         cfg,
				SourcePath:     args[0],
				Voice:          voiceName,
				AllowDuplicate: allowDuplicate,
				Logger:         logger,
			})
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, result)
			}

			fmt.Fprintf(out, "\n📊 Narration Results:\n")
			fmt.Fprintf(out, "  Item: #%d\n", result.ItemID)
			fmt.Fprintf(out, "  Title: %s\n", result.Title)
			if result.Author != "" {
				fmt.Fprintf(out, "  Author: %s\n", result.Author)
			}
			if duration := api.FormatDuration(result.DurationSeconds); duration != "" {
				fmt.Fprintf(out, "  Duration: %s\n", duration)
			}
			if result.Degraded {
				fmt.Fprintf(out, "  Audio Quality: ⚠️  Some chunks degraded after retries\n")
			}

			switch {
			case result.ReviewRequired:
				fmt.Fprintf(out, "  Review Required: ⚠️  Yes - %s\n", result.ReviewReason)
				fmt.Fprintf(out, "\n⚠️  Narration finished but requires manual review. Check the logs above for details.\n")
			case result.FinalFile != "":
				fmt.Fprintf(out, "  Final File: %s\n", result.FinalFile)
				fmt.Fprintf(out, "\n🎧 Narration complete! The audiobook is in your library.\n")
			default:
				fmt.Fprintf(out, "\n❌ Narration did not produce a final file. Check the logs above for details.\n")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&voiceName, "voice", "", "Voice preset to narrate with (default: configured voice)")
	cmd.Flags().StringVar(&profileName, "profile", "", "Narration profile to overlay (default: configured profile)")
	cmd.Flags().BoolVar(&allowDuplicate, "allow-duplicate", false, "Narrate even when the book was already queued or completed")
	return cmd
}
