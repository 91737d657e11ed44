package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

func newUsersCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List user accounts (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/admin/users?limit=%d&offset=%d", limit, offset)
			resp, err := client.Get(path)
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}

			var users []model.UserRecord
			if err := json.Unmarshal(resp.Data, &users); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if len(users) == 0 {
				fmt.Println("No users found.")
				return nil
			}

			fmt.Printf("%-8s  %-24s  %-12s  %-10s  %-6s  %s\n", "ID", "NAME", "MONEY", "DONATE", "ADMIN", "MUTE")
			for _, u := range users {
				mute := "-"
				if u.IsMuted() {
					mute = fmt.Sprintf("%dm", u.Mute)
				}
				fmt.Printf("%-8d  %-24s  %-12s  %-10s  %-6d  %s\n",
					u.ID, u.Name, humanize.Comma(u.Money), humanize.Comma(u.Donate), u.AdminLevel, mute)
			}

			if resp.Pagination != nil && resp.Pagination.HasMore {
				fmt.Printf("\n(%d of %d shown)\n", len(users), resp.Pagination.Total)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")
	return cmd
}
