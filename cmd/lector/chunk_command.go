package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lector/internal/book"
	"lector/internal/chunker"
	"lector/internal/voice"
)

func newChunkCommand(ctx *commandContext) *cobra.Command {
	var profileName string
	var maxWords int
	var maxChars int
	var showText bool

	cmd := &cobra.Command{
		Use:   "chunk <book>",
		Short: "Preview how a book splits into synthesis chunks",
		Long: `Split a book into the chunks the synthesizer would narrate and print the
boundaries. Nothing is queued and no audio is produced.

Examples:
  lector chunk book.epub
  lector chunk book.epub --max-words 50
  lector chunk book.epub --profile drama --text`,
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

			words := cfg.Chunking.MaxWords
			chars := cfg.Chunking.MaxChars
			if maxWords > 0 {
				words = maxWords
			}
			if maxChars > 0 {
				chars = maxChars
			}

			loaded, err := book.Load(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			totalChunks := 0
			totalWords := 0
			rows := make([][]string, 0, len(loaded.Chapters))
			type chapterChunks struct {
				title  string
				chunks []chunker.Chunk
			}
			detail := make([]chapterChunks, 0, len(loaded.Chapters))
			for idx, chapter := range loaded.Chapters {
				chunks := chunker.Split(chapter.Text, words, chars)
				title := strings.TrimSpace(chapter.Title)
				if title == "" {
					title = fmt.Sprintf("Chapter %02d", idx+1)
				}
				chapterWords := 0
				for _, chunk := range chunks {
					chapterWords += chunk.Words
				}
				totalChunks += len(chunks)
				totalWords += chapterWords
				rows = append(rows, []string{
					fmt.Sprintf("%d", idx+1),
					title,
					fmt.Sprintf("%d", len(chunks)),
					fmt.Sprintf("%d", chapterWords),
				})
				detail = append(detail, chapterChunks{title: title, chunks: chunks})
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"title":     loaded.Title,
					"author":    loaded.Author,
					"max_words": words,
					"max_chars": chars,
					"chapters":  len(loaded.Chapters),
					"chunks":    totalChunks,
					"words":     totalWords,
				})
			}

			fmt.Fprintf(out, "Title: %s\n", loaded.Title)
			if loaded.Author != "" {
				fmt.Fprintf(out, "Author: %s\n", loaded.Author)
			}
			fmt.Fprintf(out, "Limits: %d words / %d chars per chunk\n\n", words, chars)
			table := renderTable(
				[]string{"#", "Chapter", "Chunks", "Words"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight},
			)
			fmt.Fprint(out, table)
			fmt.Fprintf(out, "Total: %d chunks, %d words\n", totalChunks, totalWords)

			if showText {
				for _, chapter := range detail {
					fmt.Fprintf(out, "\n== %s ==\n", chapter.title)
					for _, chunk := range chapter.chunks {
						fmt.Fprintf(out, "[%d] (%dw/%dc) %s\n", chunk.Index, chunk.Words, chunk.Chars, chunk.Text)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&profileName, "profile", "", "Narration profile to overlay (default: configured profile)")
	cmd.Flags().IntVar(&maxWords, "max-words", 0, "Override the per-chunk word limit")
	cmd.Flags().IntVar(&maxChars, "max-chars", 0, "Override the per-chunk character limit")
	cmd.Flags().BoolVar(&showText, "text", false, "Print every chunk's text")
	return cmd
}
