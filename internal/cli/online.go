package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newOnlineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "online",
		Short: "Show the live player count",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/online")
			if err != nil {
				return fmt.Errorf("fetch online: %w", err)
			}

			var data struct {
				Online     int `json:"online"`
				MaxPlayers int `json:"maxPlayers"`
			}
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			fmt.Printf("%d / %d players online\n", data.Online, data.MaxPlayers)
			return nil
		},
	}
}
