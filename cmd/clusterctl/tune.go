package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func tuneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tune",
		Short: "Apply consensus timing tuning to the shared configuration",
		Long: `tune upserts the configured token, consensus, join, hold and
max_messages values into the totem section of the shared configuration
document, reloads the protocol service and verifies quorum is still
reachable. Nothing is rolled back on failure; the outcome is surfaced
for operator action.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := context.Background()

			err = a.applyTuning(ctx)
			return a.finish(ctx, "tune", a.cfg.Corosync.ConfPath, err)
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded membership operations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			if a.jrnl == nil {
				return fmt.Errorf("operation journal is not configured")
			}

			entries, err := a.jrnl.List(context.Background(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No operations recorded.")
				return nil
			}
			for _, e := range entries {
				line := fmt.Sprintf("%s  %-12s %-12s %s", e.At.Format("2006-01-02 15:04:05"), e.Action, e.Outcome, e.Target)
				if e.Detail != "" {
					line += "  (" + e.Detail + ")"
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries to show")
	return cmd
}
