package cmd

import (
	"context"
	"errors"

	"github.com/Togather-Foundation/eventhub/internal/access"
	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/Togather-Foundation/eventhub/internal/listing"
	"github.com/spf13/cobra"
)

func newEventsCommand(opts *rootOptions) *cobra.Command {
	var (
		page   int
		limit  int
		search string
		format string
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List local events",
		Long: `List one page of events from the local event backend.

Examples:
  # First page
  eventhub events

  # Second page of events whose title mentions music
  eventhub events --page 2 --search music

  # Output raw JSON
  eventhub events --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.authorize(access.RouteHome); err != nil {
					return err
				}
				if limit <= 0 {
					limit = a.cfg.Listing.EventsPageSize
				}
				q := listing.NewQuery(page, limit, search)
				result, err := a.eventRepository(false).List(ctx, q)
				if err != nil {
					return fail(err, "Failed to load events")
				}
				return printEvents(cmd.OutOrStdout(), format, q, result, a.images, a.cfg.Backend.Location())
			})
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number (starts at 1)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "events per page (default from config)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "search term")
	cmd.Flags().StringVar(&format, "format", formatTable, "output format (table, json)")

	return cmd
}

// fail turns a source error into the text a user should see.
func fail(err error, fallback string) error {
	var qerr listing.QueryError
	if errors.As(err, &qerr) {
		return qerr
	}
	return userError{msg: events.UserMessage(err, fallback), err: err}
}

type userError struct {
	msg string
	err error
}

func (e userError) Error() string { return e.msg }

func (e userError) Unwrap() error { return e.err }
