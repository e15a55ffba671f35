package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/spf13/cobra"
)

func newTokenCommand() *cobra.Command {
	var (
		subject string
		role    string
		name    string
		secret  string
		master  string
		issuer  string
		expiry  time.Duration
	)

	cmd := &cobra.Command{
		Use:    "token",
		Short:  "Mint a credential for a local development backend (development only)",
		Hidden: true,
		Long: `Development only. Real credentials are issued by the event backend.

Mint an HS256 credential for a local development backend that shares the
same secret. The secret defaults to the EVENTHUB_JWT_SECRET environment variable.

A backend configured with a master secret signs with a key derived from it;
pass --master-secret (or EVENTHUB_MASTER_SECRET) to derive the same key.

Examples:
  eventhub token --subject admin-1 --role admin --name "Ada"
  eventhub login --token "$(eventhub token --subject admin-1 --role admin)"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := signingSecret(secret, master)
			if err != nil {
				return err
			}
			if key == "" {
				return errors.New("a signing secret is required (--secret, --master-secret, EVENTHUB_JWT_SECRET or EVENTHUB_MASTER_SECRET)")
			}
			parsed, err := auth.ParseRole(role)
			if err != nil {
				return fmt.Errorf("invalid role %q (valid: guest, member, admin)", role)
			}

			token, err := auth.NewJWTManager(key, expiry, issuer).Generate(subject, parsed, name)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "user identity (required)")
	cmd.Flags().StringVar(&role, "role", "member", "role (member, admin)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret")
	cmd.Flags().StringVar(&master, "master-secret", "", "master secret to derive the signing key from")
	cmd.Flags().StringVar(&issuer, "issuer", "eventhub-dev", "issuer claim")
	cmd.Flags().DurationVar(&expiry, "expiry", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

// signingSecret resolves the HS256 key from flags, then the environment. A
// master secret is only used when no raw secret is set. It returns "" when
// neither is configured.
func signingSecret(secret, master string) (string, error) {
	if secret == "" {
		secret = os.Getenv("EVENTHUB_JWT_SECRET")
	}
	if secret != "" {
		return secret, nil
	}
	if master == "" {
		master = os.Getenv("EVENTHUB_MASTER_SECRET")
	}
	if master == "" {
		return "", nil
	}
	key, err := auth.DeriveCredentialKey([]byte(master))
	if err != nil {
		return "", fmt.Errorf("derive signing key: %w", err)
	}
	return string(key), nil
}
