package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions holds the global flags shared by every subcommand.
type rootOptions struct {
	configPath  string
	logLevel    string
	logFormat   string
	metricsFile string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "eventhub",
		Short: "EventHub - browse and manage community events",
		Long: `EventHub browses events from two sources: the local event backend and an
external read-only catalog. Admins manage local events from the dashboard.

Access follows the stored session:
- Anyone can browse events and the catalog
- Guests can log in; logged-in users are sent home instead
- Only admins can create, edit, or delete events`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file path (optional, uses env vars by default)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error) (default: warn)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (json, console) (default: console)")
	root.PersistentFlags().StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		newEventsCommand(opts),
		newCatalogCommand(opts),
		newBrowseCommand(opts),
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newWhoamiCommand(opts),
		newDashboardCommand(opts),
		newTokenCommand(),
		newVersionCommand(),
	)

	return root
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
