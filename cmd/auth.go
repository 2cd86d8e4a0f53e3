package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/calendar-mcp/internal/google"
	"github.com/teemow/calendar-mcp/internal/tools/common"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Gmail authorization",
	}
	cmd.AddCommand(newAuthLoginCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var (
		userID     string
		force      bool
		noBrowser  bool
		listenAddr string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize a Gmail account in the browser",
		Long: `Authorize a Gmail account and store its credential in the token directory.

An existing valid or refreshable credential is reused unless --force is set.
Otherwise a browser window opens on the Google consent page and the result is
received on a loopback listener.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			logger := newLogger()
			manager, err := newManager(appConfig, nil, logger)
			if err != nil {
				return err
			}
			defer func() { _ = manager.Store().Close() }()

			opts := []google.InteractiveOption{
				google.WithForce(force),
				google.WithListenAddr(listenAddr),
				google.WithCallbackTimeout(timeout),
				google.WithOutput(cmd.ErrOrStderr()),
			}
			if noBrowser {
				opts = append(opts, google.WithBrowserOpener(func(string) error {
					return fmt.Errorf("browser disabled")
				}))
			}

			if _, err := google.NewInteractive(manager, opts...).Login(ctx, userID); err != nil {
				return fmt.Errorf("login failed for %s: %w", userID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Gmail account %s is connected.\n", userID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", common.DefaultUserID, "Account identifier the credential is stored under")
	cmd.Flags().BoolVar(&force, "force", false, "Run the consent flow even if a usable credential exists")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the consent URL instead of opening a browser")
	cmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:0", "Loopback address for the OAuth callback")
	cmd.Flags().DurationVar(&timeout, "timeout", google.DefaultCallbackTimeout, "How long to wait for the browser to return")

	return cmd
}
