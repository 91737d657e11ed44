package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pr-poehali-dev/samp-survival-site/internal/logging"
)

var (
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking SAMPSITE_SERVER first.
func defaultServer() string {
	if s := os.Getenv("SAMPSITE_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// NewRootCmd creates the root cobra command for the sampctl CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sampctl",
		Short: "sampctl — admin CLI for the game site",
		Long:  "sampctl talks to the site API: server status, rules, news, user moderation, and IP block management.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.New(flagLogLevel, flagLogFormat)
			client = NewClient(flagServer, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "Site server URL (or SAMPSITE_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newOnlineCmd(),
		newRulesCmd(),
		newNewsCmd(),
		newUsersCmd(),
		newBlocksCmd(),
		newLogsCmd(),
	)

	return root
}
