package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/gameapi"
)

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List server rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/rules")
			if err != nil {
				return fmt.Errorf("fetch rules: %w", err)
			}

			var rules []gameapi.Rule
			if err := json.Unmarshal(resp.Data, &rules); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if len(rules) == 0 {
				fmt.Println("No rules found.")
				return nil
			}

			lastCategory := ""
			for _, r := range rules {
				if r.Category != lastCategory {
					fmt.Printf("\n[%s]\n", r.Category)
					lastCategory = r.Category
				}
				fmt.Printf("  %d. %s\n", r.ID, r.Title)
				if r.Description != "" {
					fmt.Printf("     %s\n", r.Description)
				}
			}
			return nil
		},
	}
}
