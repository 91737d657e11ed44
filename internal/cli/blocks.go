package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/gameapi"
)

func newBlocksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "Manage blocked IP addresses (admin)",
	}
	cmd.AddCommand(newBlocksListCmd(), newUnblockCmd())
	return cmd
}

func newBlocksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked IP addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/admin/blocks")
			if err != nil {
				return fmt.Errorf("list blocks: %w", err)
			}

			var blocks []gameapi.IPBlock
			if err := json.Unmarshal(resp.Data, &blocks); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if len(blocks) == 0 {
				fmt.Println("No tracked addresses.")
				return nil
			}

			fmt.Printf("%-18s  %-8s  %-10s  %-20s  %s\n", "IP", "FAILS", "PERMANENT", "TEMP UNTIL", "LAST LOGIN")
			for _, b := range blocks {
				perm := "-"
				if b.PermanentlyBlocked {
					perm = "yes"
				}
				fmt.Printf("%-18s  %-8d  %-10s  %-20s  %s\n",
					b.IPAddress, b.FailedAttempts, perm, b.TempBlockedUntil, b.AttemptedLogin)
			}
			return nil
		},
	}
}

func newUnblockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unblock <ip>",
		Short: "Clear all blocks and counters for an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := client.Delete("/api/v1/admin/blocks/" + args[0]); err != nil {
				return fmt.Errorf("unblock %s: %w", args[0], err)
			}
			fmt.Printf("Unblocked %s\n", args[0])
			return nil
		},
	}
}
