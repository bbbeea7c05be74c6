package main

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vigil/internal/config"
	"vigil/internal/events"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect detection events",
	}

	eventsCmd.AddCommand(newEventsListCommand(ctx))
	eventsCmd.AddCommand(newEventsShowCommand(ctx))

	return eventsCmd
}

func newEventsListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List detection events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *events.Store) error {
				var list []*events.Event
				var err error
				if trimmed := strings.TrimSpace(statusFlag); trimmed != "" {
					status, ok := events.ParseStatus(trimmed)
					if !ok {
						return fmt.Errorf("unknown status %q (valid: %s)", trimmed, statusNames())
					}
					list, err = store.ListByStatus(cmd.Context(), status)
				} else {
					list, err = store.List(cmd.Context(), limit)
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No events")
					return nil
				}

				headers := []string{"ID", "CAMERA", "STATUS", "ENTERED", "DURATION", "SIZE", "NOTIFIED"}
				aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}
				rows := make([][]string, 0, len(list))
				for _, event := range list {
					rows = append(rows, []string{
						fmt.Sprintf("%d", event.ID),
						event.CameraID,
						string(event.Status),
						event.EntryTime.Local().Format("2006-01-02 15:04:05"),
						eventDuration(event),
						eventSize(event),
						string(event.NotificationStatus),
					})
				}
				fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&statusFlag, "status", "s", "", "Filter by lifecycle status")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of events to list")
	return cmd
}

func newEventsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <event-id>",
		Short: "Show one event in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *events.Store) error {
				event, err := store.GetByEventID(cmd.Context(), strings.TrimSpace(args[0]))
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("event %q not found", args[0])
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Event:         %s\n", event.EventID)
				fmt.Fprintf(out, "Camera:        %s\n", event.CameraID)
				fmt.Fprintf(out, "Status:        %s\n", event.Status)
				fmt.Fprintf(out, "Entered:       %s\n", event.EntryTime.Local().Format(time.RFC3339))
				if event.ExitTime != nil {
					fmt.Fprintf(out, "Exited:        %s (%s)\n", event.ExitTime.Local().Format(time.RFC3339), eventDuration(event))
				}
				fmt.Fprintf(out, "Local file:    %s\n", event.LocalPath)
				if event.CompressedPath != "" {
					fmt.Fprintf(out, "Compressed:    %s (%s)\n", event.CompressedPath, event.Codec)
				}
				if event.OriginalBytes > 0 {
					fmt.Fprintf(out, "Size:          %s", humanize.Bytes(uint64(event.OriginalBytes)))
					if event.FinalBytes > 0 && event.FinalBytes != event.OriginalBytes {
						fmt.Fprintf(out, " -> %s", humanize.Bytes(uint64(event.FinalBytes)))
					}
					fmt.Fprintln(out)
				}
				if event.RemoteURL != "" {
					fmt.Fprintf(out, "Remote URL:    %s\n", event.RemoteURL)
				}
				fmt.Fprintf(out, "Notification:  %s\n", event.NotificationStatus)
				if event.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:         %s\n", event.ErrorMessage)
				}
				return nil
			})
		},
	}
}

func eventDuration(event *events.Event) string {
	if event.ExitTime == nil {
		return "open"
	}
	return event.ExitTime.Sub(event.EntryTime).Round(time.Second).String()
}

func eventSize(event *events.Event) string {
	size := event.FinalBytes
	if size == 0 {
		size = event.OriginalBytes
	}
	if size == 0 {
		return "-"
	}
	return humanize.Bytes(uint64(size))
}

func statusNames() string {
	all := events.AllStatuses()
	names := make([]string, 0, len(all))
	for _, status := range all {
		names = append(names, string(status))
	}
	return strings.Join(names, ", ")
}
