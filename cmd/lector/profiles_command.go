package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lector/internal/voice"
)

func newProfilesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the built-in narration profiles",
		Annotations: map[string]string{
			"skipConfigLoad": "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles := voice.Profiles()
			if ctx.JSONMode() {
				return writeJSON(cmd, profiles)
			}

			rows := make([][]string, 0, len(profiles))
			for _, profile := range profiles {
				rows = append(rows, []string{
					profile.Name,
					fmt.Sprintf("%.2f", profile.Temperature),
					fmt.Sprintf("%.2f", profile.TopP),
					fmt.Sprintf("%d", profile.MaxWords),
					fmt.Sprintf("%d", profile.MaxChars),
					fmt.Sprintf("%.2fs / %.2fs", profile.ChunkGap, profile.ChapterGap),
					profile.Description,
				})
			}
			table := renderTable(
				[]string{"Name", "Temp", "Top-P", "Words", "Chars", "Gaps", "Description"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft},
			)
			fmt.Fprint(cmd.OutOrStdout(), table)
			return nil
		},
	}
}
