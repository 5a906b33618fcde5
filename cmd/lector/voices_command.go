package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lector/internal/voice"
)

func newVoicesCommand(ctx *commandContext) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "voices",
		Short: "List the built-in voice presets",
		Annotations: map[string]string{
			"skipConfigLoad": "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := voice.Presets()
			if trimmed := strings.TrimSpace(category); trimmed != "" {
				presets = voice.PresetsByCategory(trimmed)
				if len(presets) == 0 {
					return fmt.Errorf("unknown voice category %q (available: %s)", trimmed, strings.Join(voice.Categories(), ", "))
				}
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, presets)
			}

			rows := make([][]string, 0, len(presets))
			for _, preset := range presets {
				rows = append(rows, []string{
					preset.Name,
					preset.Category,
					preset.Age,
					preset.Accent,
				})
			}
			table := renderTable(
				[]string{"Name", "Category", "Age", "Accent"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			)
			out := cmd.OutOrStdout()
			fmt.Fprint(out, table)
			fmt.Fprintf(out, "Categories: %s\n", strings.Join(voice.Categories(), ", "))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Show only presets in this category")
	return cmd
}
