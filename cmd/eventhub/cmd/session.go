package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/access"
	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/Togather-Foundation/eventhub/internal/session"
	"github.com/spf13/cobra"
)

func newLoginCommand(opts *rootOptions) *cobra.Command {
	var (
		token string
		name  string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a session from a backend-issued credential",
		Long: `Store a session built from a credential issued by the event backend.

The credential's subject, role and name claims become the session. The
signature is checked by the backend on every mutating call. When the signing
secret is known locally (EVENTHUB_JWT_SECRET or EVENTHUB_MASTER_SECRET), it is
also verified here before the session is stored.

The token can also be supplied through the EVENTHUB_TOKEN environment variable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = os.Getenv("EVENTHUB_TOKEN")
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("a credential is required (--token or EVENTHUB_TOKEN)")
			}

			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.authorize(access.RouteLogin); err != nil {
					return err
				}
				secret, err := signingSecret("", "")
				if err != nil {
					return err
				}
				if secret != "" {
					raw := token
					if bearer, err := auth.TokenFromHeader(token); err == nil {
						raw = bearer
					}
					if _, err := auth.NewJWTManager(secret, 0, "").Validate(raw); err != nil {
						return fmt.Errorf("credential rejected: %w", err)
					}
				}
				sess, err := session.FromCredential(token, name)
				if err != nil {
					return fmt.Errorf("credential rejected: %w", err)
				}
				if err := a.sessions.Login(sess); err != nil {
					return fmt.Errorf("save session: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", sess.DisplayName, sess.Role)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "credential issued by the event backend")
	cmd.Flags().StringVar(&name, "name", "", "display name (default: from the credential)")

	return cmd
}

func newLogoutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				wasLoggedIn := a.sessions.Current() != nil
				if err := a.sessions.Logout(); err != nil {
					return fmt.Errorf("clear session: %w", err)
				}
				if wasLoggedIn {
					fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				}
				return nil
			})
		},
	}
}

func newWhoamiCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				current := a.sessions.Current()
				if current == nil {
					fmt.Fprintln(out, "guest (not logged in)")
					return nil
				}
				fmt.Fprintf(out, "Name:      %s\n", current.DisplayName)
				fmt.Fprintf(out, "Identity:  %s\n", current.Identity)
				fmt.Fprintf(out, "Role:      %s\n", current.Role)
				fmt.Fprintf(out, "Issued at: %s\n", current.IssuedAt.Local().Format(time.RFC1123))
				fmt.Fprintf(out, "Dashboard: %s\n", access.CanAccess(current, access.RouteDashboard))
				fmt.Fprintf(out, "Can manage events: %t\n", auth.CanMutateEvents(current.Role))
				return nil
			})
		},
	}
}
