package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/calendar-mcp/internal/google"
	"github.com/teemow/calendar-mcp/internal/tools/common"
)

// accountsTimeout bounds the non-interactive account commands.
const accountsTimeout = 30 * time.Second

func newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Inspect and manage stored Gmail credentials",
	}
	cmd.AddCommand(newAccountsListCmd())
	cmd.AddCommand(newAccountsStatusCmd())
	cmd.AddCommand(newAccountsSwitchCmd())
	cmd.AddCommand(newAccountsMigrateCmd())
	return cmd
}

// withManager runs fn with a credential manager bound to the configured
// token directory and closes the store afterwards.
func withManager(cmd *cobra.Command, fn func(ctx context.Context, m *google.Manager) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), accountsTimeout)
	defer cancel()

	manager, err := newManager(appConfig, nil, newLogger())
	if err != nil {
		return err
	}
	defer func() { _ = manager.Store().Close() }()
	return fn(ctx, manager)
}

func newAccountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts with a stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, func(ctx context.Context, m *google.Manager) error {
				accounts, err := m.Store().List(ctx)
				if err != nil {
					return fmt.Errorf("list accounts: %w", err)
				}
				if len(accounts) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No accounts in %s\n", m.Store().Dir())
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "USER\tSTATE\tUPDATED\tLAST REFRESH")
				for _, a := range accounts {
					state, err := m.State(ctx, a.UserID)
					if err != nil {
						return err
					}
					refreshed := "-"
					if a.LastRefreshAt != nil {
						refreshed = a.LastRefreshAt.Format(time.RFC3339)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.UserID, state, a.UpdatedAt.Format(time.RFC3339), refreshed)
				}
				return w.Flush()
			})
		},
	}
}

func newAccountsStatusCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the credential state of an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, func(ctx context.Context, m *google.Manager) error {
				state, err := m.State(ctx, userID)
				if err != nil {
					return fmt.Errorf("read credential: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", userID, state)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", common.DefaultUserID, "Account identifier")
	return cmd
}

func newAccountsSwitchCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "switch",
		Short: "Forget the stored credential so the next login picks an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, func(ctx context.Context, m *google.Manager) error {
				existed, err := m.SwitchAccount(ctx, userID)
				if err != nil {
					return err
				}
				if existed {
					fmt.Fprintf(cmd.OutOrStdout(), "Disconnected %s. Run `calendar-mcp auth login --user %s` to connect another account.\n", userID, userID)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "No account connected for %s.\n", userID)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", common.DefaultUserID, "Account identifier")
	return cmd
}

func newAccountsMigrateCmd() *cobra.Command {
	var (
		userID string
		from   string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Import a token file written by the previous tooling",
		Long: `Import an authorized-user token file (token, refresh_token, scopes, expiry)
as the credential of --user. Both the account and the file are named
explicitly; the old file is left in place and can be removed afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, func(ctx context.Context, m *google.Manager) error {
				if _, err := m.Store().Import(ctx, userID, from); err != nil {
					return fmt.Errorf("migrate %s: %w", userID, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s as %s (%s).\n", from, userID, m.Store().Path(userID))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Account identifier the credential is stored under")
	cmd.Flags().StringVar(&from, "from", "", "Token file written by the previous tooling")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
