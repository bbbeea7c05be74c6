package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"vigil/internal/config"
	"vigil/internal/events"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and event store status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *events.Store) error {
				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				lockPath := filepath.Join(cfg.Paths.LogDir, "vigild.lock")
				if _, statErr := os.Stat(lockPath); statErr == nil {
					fmt.Fprintln(out, "Daemon:     lock file present (vigild running or exited uncleanly)")
				} else {
					fmt.Fprintln(out, "Daemon:     not running")
				}
				fmt.Fprintf(out, "Database:   %s\n", store.Path())
				fmt.Fprintf(out, "Events:     %d total\n", summary.Total)
				fmt.Fprintf(out, "  recording:  %d\n", summary.Recording)
				fmt.Fprintf(out, "  queued:     %d\n", summary.Queued)
				fmt.Fprintf(out, "  processing: %d\n", summary.Processing)
				fmt.Fprintf(out, "  completed:  %d\n", summary.Completed)
				fmt.Fprintf(out, "  failed:     %d\n", summary.Failed)
				fmt.Fprintf(out, "  cancelled:  %d\n", summary.Cancelled)
				return nil
			})
		},
	}
}
