package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/gameapi"
)

func newNewsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "news",
		Short: "List news posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/news")
			if err != nil {
				return fmt.Errorf("fetch news: %w", err)
			}

			var news []gameapi.NewsItem
			if err := json.Unmarshal(resp.Data, &news); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if len(news) == 0 {
				fmt.Println("No news found.")
				return nil
			}

			for _, n := range news {
				fmt.Printf("#%d  %s", n.ID, n.Title)
				if n.CreatedAt != "" {
					fmt.Printf("  (%s)", n.CreatedAt)
				}
				fmt.Println()
			}
			return nil
		},
	}
}
