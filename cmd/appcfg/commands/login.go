package commands

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/systmms/appcfg/internal/config"
	"github.com/systmms/appcfg/internal/credstore"
	dserrors "github.com/systmms/appcfg/internal/errors"
	"github.com/systmms/appcfg/internal/store"
)

func NewLoginCommand(cfg *config.Config, opts *GlobalOptions) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an App Configuration connection string in the OS keyring",
		Long: `Login saves an access key connection string in the operating system keyring
so later commands can find it without --connection-string or
$APPCFG_CONNECTION_STRING. Entries are keyed by store name (--store or
store.name in appcfg.yaml).

The connection string is taken from --connection-string, or read as a single
line from stdin.

Examples:
  appcfg login --store my-store < conn.txt
  appcfg login --store my-store --delete`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.LoadOptional(); err != nil {
				return err
			}
			name := opts.StoreName
			if name == "" {
				name = definition(cfg).Store.Name
			}
			account := credstore.Account(name)

			if remove {
				err := credstore.Delete(name)
				if errors.Is(err, credstore.ErrNotFound) {
					cfg.Logger.Warn("No connection string stored for %s", account)
					return nil
				}
				if err != nil {
					return err
				}
				cfg.Logger.Info("Removed connection string for %s", account)
				return nil
			}

			conn := opts.ConnectionString
			if conn == "" {
				if !cfg.NonInteractive {
					fmt.Fprint(cmd.ErrOrStderr(), "Connection string: ")
				}
				line, err := readLine(cmd)
				if err != nil {
					return err
				}
				conn = line
			}

			info, err := store.ParseConnectionString(conn)
			if err != nil {
				return err
			}
			if err := credstore.Save(name, conn); err != nil {
				return err
			}

			cfg.Logger.Info("Stored connection string for %s (%s)", account, info.Endpoint)
			return nil
		},
	}

	cmd.Flags().BoolVar(&remove, "delete", false, "Remove the stored connection string")

	return cmd
}

func readLine(cmd *cobra.Command) (string, error) {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read connection string: %w", err)
		}
		return "", dserrors.UserError{
			Message:    "No connection string provided",
			Suggestion: "Pass --connection-string or pipe the connection string on stdin",
		}
	}
	return strings.TrimSpace(scanner.Text()), nil
}
