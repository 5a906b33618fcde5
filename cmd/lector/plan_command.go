package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lector/internal/api"
	"lector/internal/logging"
	"lector/internal/voice"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var voiceName string
	var profileName string

	cmd := &cobra.Command{
		Use:   "plan <book>",
		Short: "Plan a book and show chapter and chunk boundaries",
		Long: `Plan a book without touching the processing queue: load it, split it into
chapters and synthesis chunks, and report the metadata the organizer would
use. This command is useful for troubleshooting chunking issues before
committing a book to a full narration run.

Examples:
  lector plan book.epub               # Plan with configured settings
  lector plan book.epub --voice sage  # Plan with a specific voice
  lector plan book.epub --profile drama`,
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
			fmt.Fprintf(out, "📖 Planning book: %s\n\n", args[0])

			planCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			result, err := api.PlanBook(planCtx, api.PlanBookRequest{
				Config:     cfg,
				SourcePath: args[0],
				Voice:      voiceName,
				Logger:     logger,
			})
			if err != nil {
				return err
			}

			assessment := api.AssessPlanBook(result.Item)
			fmt.Fprintf(out, "\n📊 Planning Results:\n")
			fmt.Fprintf(out, "  Title: %s\n", assessment.Title)
			fmt.Fprintf(out, "  Author: %s\n", assessment.Author)
			if assessment.Series != "" {
				fmt.Fprintf(out, "  Series: %s\n", assessment.Series)
			}
			if assessment.Narrator != "" {
				fmt.Fprintf(out, "  Narrator: %s\n", assessment.Narrator)
			}
			if assessment.MetadataPresent {
				fmt.Fprintf(out, "  Metadata: ✅ Available\n")
				if assessment.LibraryFilename != "" {
					fmt.Fprintf(out, "  Library Filename: %s\n", assessment.LibraryFilename)
				}
			} else {
				fmt.Fprintf(out, "  Metadata: ❌ None found\n")
			}
			if assessment.ReviewRequired {
				fmt.Fprintf(out, "  Review Required: ⚠️  Yes - %s\n", assessment.ReviewReason)
			} else {
				fmt.Fprintf(out, "  Review Required: ✅ No\n")
			}

			plan := result.Plan
			if len(plan.Chapters) > 0 {
				fmt.Fprintf(out, "\n🔊 Chunk Plan (%d chapters, %d chunks):\n", len(plan.Chapters), plan.ChunkCount())
				rows := make([][]string, 0, len(plan.Chapters))
				for _, chapter := range plan.Chapters {
					words := 0
					for _, chunk := range chapter.Chunks {
						words += chunk.Words
					}
					title := strings.TrimSpace(chapter.Title)
					if title == "" {
						title = fmt.Sprintf("Chapter %02d", chapter.Index)
					}
					rows = append(rows, []string{
						fmt.Sprintf("%d", chapter.Index),
						title,
						fmt.Sprintf("%d", len(chapter.Chunks)),
						fmt.Sprintf("%d", words),
					})
				}
				table := renderTable(
					[]string{"#", "Chapter", "Chunks", "Words"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignRight},
				)
				fmt.Fprint(out, table)
			}

			fmt.Fprintf(out, "\n%s\n", assessment.OutcomeMessage)
			return nil
		},
	}

	cmd.Flags().StringVar(&voiceName, "voice", "", "Voice preset to narrate with (default: configured voice)")
	cmd.Flags().StringVar(&profileName, "profile", "", "Narration profile to overlay (default: configured profile)")
	return cmd
}
