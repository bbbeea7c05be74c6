package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vigil/internal/logging"
	"vigil/internal/notifications"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	notifyCmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification utilities",
	}

	notifyCmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Send a test notification to every configured service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(cfg.Notifications.ServiceURLs) == 0 {
				return fmt.Errorf("no notification service URLs configured")
			}

			service, err := notifications.NewService(cfg, logging.NewNop())
			if err != nil {
				return fmt.Errorf("init notifications: %w", err)
			}
			if err := service.TestNotification(cmd.Context()); err != nil {
				return fmt.Errorf("test notification failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Test notification sent to %d service(s)\n", len(cfg.Notifications.ServiceURLs))
			return nil
		},
	})

	return notifyCmd
}
