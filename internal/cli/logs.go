package cli

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/gameapi"
)

func newLogsCmd() *cobra.Command {
	var category, username string
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show game and site audit logs (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("limit", fmt.Sprint(limit))
			if category != "" {
				q.Set("category", category)
			}
			if username != "" {
				q.Set("username", username)
			}

			resp, err := client.Get("/api/v1/admin/logs?" + q.Encode())
			if err != nil {
				return fmt.Errorf("fetch logs: %w", err)
			}

			var logs []gameapi.LogEntry
			if err := json.Unmarshal(resp.Data, &logs); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if len(logs) == 0 {
				fmt.Println("No log entries.")
				return nil
			}

			for _, e := range logs {
				fmt.Printf("[%s] %-10s %-20s %s", e.CreatedAt, e.Category, e.UserName, e.Action)
				if e.Details != "" {
					fmt.Printf(" (%s)", e.Details)
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Filter by log category")
	cmd.Flags().StringVar(&username, "username", "", "Filter by user name")
	cmd.Flags().IntVar(&limit, "limit", 100, "Page size")
	return cmd
}
