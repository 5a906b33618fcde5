package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"lector/internal/api"
	"lector/internal/queueaccess"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the narration queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueClearFailedCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueStopCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueHealthSubcommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueaccess.Access) error {
				stats, err := q.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if stats == nil {
						stats = map[string]int{}
					}
					return writeJSON(cmd, stats)
				}
				rows := buildQueueStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueaccess.Access) error {
				items, err := q.List(cmd.Context(), listStatuses)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					sorted := api.SortQueueItemsNewestFirst(items)
					if sorted == nil {
						sorted = []api.QueueItem{}
					}
					return writeJSON(cmd, sorted)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Created", "Fingerprint"},
					buildQueueListRows(items),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <itemID>",
		Short: "Show one queue item in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(q queueaccess.Access) error {
				item, err := q.Describe(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if item == nil {
					if ctx.JSONMode() {
						return writeJSON(cmd, map[string]any{"error": "not_found", "id": ids[0]})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Item %d not found\n", ids[0])
					return nil
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, item)
				}
				printQueueItemDetail(cmd.OutOrStdout(), *item)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool
	var clearForce bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withQueue(func(q queueaccess.Access) error {
				out := cmd.OutOrStdout()
				if clearForce && !ctx.JSONMode() {
					fmt.Fprintln(out, "Clearing queue without confirmation (--force)")
				}

				var removed int64
				var err error
				switch {
				case clearCompleted:
					removed, err = q.ClearCompleted(cmd.Context())
				case clearFailed:
					removed, err = q.ClearFailed(cmd.Context())
				default:
					removed, err = q.ClearAll(cmd.Context())
				}
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"removed": removed})
				}
				fmt.Fprintf(out, "Cleared %d %s\n", removed, bulkClearLabel(clearCompleted, clearFailed))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed items")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed items")
	cmd.Flags().BoolVar(&clearForce, "force", false, "No-op flag for compatibility; removal always proceeds")
	return cmd
}

func newQueueClearFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-failed",
		Short: "Remove failed queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueaccess.Access) error {
				removed, err := q.ClearFailed(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"removed": removed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d failed items\n", removed)
				return nil
			})
		},
	}
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Return in-flight items to their last stable status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueaccess.Access) error {
				updated, err := q.ResetStuck(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"updated": updated})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d items\n", updated)
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [itemID...]",
		Short: "Retry failed queue items",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}

			return ctx.withQueue(func(q queueaccess.Access) error {
				if len(ids) == 0 {
					updated, err := q.RetryAll(cmd.Context())
					if err != nil {
						return err
					}
					if ctx.JSONMode() {
						return writeJSON(cmd, map[string]any{"updated": updated})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Retried %d failed items\n", updated)
					return nil
				}

				result, err := api.RetryFailedItemsByID(cmd.Context(), q, ids)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeQueueRetryResultJSON(cmd, result)
				}
				printQueueRetryResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
}

func newQueueStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <itemID...>",
		Short: "Stop queue items after their current stage",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}

			return ctx.withQueue(func(q queueaccess.Access) error {
				result, err := api.StopItemsByID(cmd.Context(), q, ids)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeQueueStopResultJSON(cmd, result)
				}
				printQueueStopResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <itemID...>",
		Aliases: []string{"rm"},
		Short:   "Remove specific queue items",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}

			return ctx.withQueue(func(q queueaccess.Access) error {
				result, err := api.RemoveItemsByID(cmd.Context(), q, ids)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeQueueRemoveResultJSON(cmd, result)
				}
				printQueueRemoveResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
}

func newQueueHealthSubcommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueaccess.Access) error {
				health, err := q.Health(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{
						"total":      health.Total,
						"pending":    health.Pending,
						"processing": health.Processing,
						"failed":     health.Failed,
						"review":     health.Review,
						"completed":  health.Completed,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nPending: %d\nProcessing: %d\nFailed: %d\nReview: %d\nCompleted: %d\n",
					health.Total,
					health.Pending,
					health.Processing,
					health.Failed,
					health.Review,
					health.Completed,
				)
				return nil
			})
		},
	}
}
