package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const sessionFileName = "session.json"

// sessionFile holds the opaque session token. No password is ever written
// to disk; revoking the token server-side kills the CLI session too.
type sessionFile struct {
	Token string `json:"token"`
}

func newLoginCmd() *cobra.Command {
	var login string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the site",
		Long:  "Log in with game account credentials and store the issued session token.",
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(os.Stdin)

			if login == "" {
				fmt.Print("Login: ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("read login: %w", err)
				}
				login = strings.TrimSpace(line)
			}

			fmt.Print("Password: ")
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			password := strings.TrimSpace(line)

			token, err := client.Login(login, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}

			path, err := sessionPath()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}

			data, err := json.MarshalIndent(sessionFile{Token: token}, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal session: %w", err)
			}
			if err := os.WriteFile(path, data, 0600); err != nil {
				return fmt.Errorf("write session: %w", err)
			}

			fmt.Printf("Logged in as %s. Session saved to %s\n", login, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&login, "login", "", "Account login (prompted if omitted)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if client.Token != "" {
				if _, err := client.Post("/api/v1/auth/logout", nil); err != nil {
					logger.Warn("server-side logout failed", "error", err)
				}
			}

			path, err := sessionPath()
			if err != nil {
				return err
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove session: %w", err)
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}

// sessionPath returns the path to the session file (~/.sampsite/session.json).
func sessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".sampsite", sessionFileName), nil
}

// LoadSessionToken reads the stored session token, returning empty string if
// not logged in.
func LoadSessionToken() string {
	p, err := sessionPath()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return ""
	}
	var sf sessionFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return ""
	}
	return sf.Token
}
