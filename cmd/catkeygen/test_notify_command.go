package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"catkeygen/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test report email",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Email.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "Email delivery is disabled; nothing sent")
				return nil
			}

			service := notifications.NewService(cfg)
			if err := service.TestNotification(cmd.Context()); err != nil {
				return fmt.Errorf("send test email: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test email sent")
			return nil
		},
	}
}
