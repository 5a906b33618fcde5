package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"lector/internal/book"
	"lector/internal/fileutil"
	"lector/internal/queue"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var voiceName string

	cmd := &cobra.Command{
		Use:   "add <book>",
		Short: "Add a book to the narration queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			info, err := os.Stat(absPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("book file does not exist: %s", absPath)
				}
				return fmt.Errorf("inspect book file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", absPath)
			}
			if !book.SupportedExtension(absPath) {
				return fmt.Errorf("unsupported book format %q (expected .epub, .txt, or .md)", filepath.Ext(absPath))
			}

			out := cmd.OutOrStdout()
			voice := strings.TrimSpace(voiceName)

			client, dialErr := ctx.dialClient()
			if dialErr == nil {
				defer client.Close()
				resp, err := client.AddBook(absPath, voice)
				if err != nil {
					return err
				}
				if resp == nil {
					return errors.New("empty response from daemon")
				}
				printQueuedBook(out, resp.Item.ID, resp.Item.Title, absPath)
				return nil
			}

			// Daemon unreachable: enqueue directly against the store.
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			fingerprint, err := fileutil.Fingerprint(absPath)
			if err != nil {
				return fmt.Errorf("fingerprint book: %w", err)
			}
			existing, err := store.FindByFingerprint(cmd.Context(), fingerprint)
			if err != nil {
				return fmt.Errorf("lookup existing book: %w", err)
			}
			if existing != nil {
				fmt.Fprintf(out, "Book already queued as item #%d (%s)\n", existing.ID, formatStatusLabel(string(existing.Status)))
				return nil
			}

			item, err := store.NewBook(cmd.Context(), absPath, fingerprint, voice)
			if err != nil {
				return err
			}
			printQueuedBook(out, item.ID, item.Title, absPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&voiceName, "voice", "", "Voice preset to narrate with (defaults to the configured voice)")
	return cmd
}

func printQueuedBook(out io.Writer, id int64, title, sourcePath string) {
	display := strings.TrimSpace(title)
	if display == "" {
		display = filepath.Base(sourcePath)
	}
	fmt.Fprintf(out, "Queued %q as item #%d\n", display, id)
}
