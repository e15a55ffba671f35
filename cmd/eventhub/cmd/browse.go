package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Togather-Foundation/eventhub/internal/access"
	"github.com/Togather-Foundation/eventhub/internal/catalog"
	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/Togather-Foundation/eventhub/internal/listing"
	"github.com/spf13/cobra"
)

const browseHelp = "[n]ext  [p]rev  [/term] search  [/] clear search  [l]ist  [r]efresh  [q]uit"

func newBrowseCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "browse [events|catalog]",
		Short:     "Page and search interactively",
		Long:      "Page through a source and search it interactively. Commands: " + browseHelp,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"events", "catalog"},
		RunE: func(cmd *cobra.Command, args []string) error {
			source := "events"
			if len(args) == 1 {
				source = args[0]
			}
			if source != "events" && source != "catalog" {
				return fmt.Errorf("unknown source %q (valid: events, catalog)", source)
			}

			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				in, out := cmd.InOrStdin(), cmd.OutOrStdout()
				if source == "catalog" {
					if err := a.authorize(access.RouteCatalog); err != nil {
						return err
					}
					feed := listing.NewFeed[catalog.ExternalItem](a.catalogAdapter(), a.cfg.Listing.CatalogPageSize)
					return browse(ctx, in, out, feed, func(q listing.Query, page listing.Page[catalog.ExternalItem]) error {
						return printCatalog(out, formatTable, q, page)
					}, "Failed to load catalog")
				}

				if err := a.authorize(access.RouteHome); err != nil {
					return err
				}
				feed := listing.NewFeed[events.Event](a.eventRepository(false), a.cfg.Listing.EventsPageSize)
				return browse(ctx, in, out, feed, func(q listing.Query, page listing.Page[events.Event]) error {
					return printEvents(out, formatTable, q, page, a.images, a.cfg.Backend.Location())
				}, "Failed to load events")
			})
		},
	}
}

// browse runs the read-eval loop over feed. Only query changes trigger a
// fetch; a failed fetch is reported and the last page stays on screen.
func browse[T any](ctx context.Context, in io.Reader, out io.Writer, feed *listing.Feed[T], render func(listing.Query, listing.Page[T]) error, fallback string) error {
	scanner := bufio.NewScanner(in)
	refresh := false

	for {
		var (
			page    listing.Page[T]
			fetched = true
			err     error
		)
		if refresh {
			page, err = feed.Refresh(ctx)
		} else {
			page, fetched, err = feed.Load(ctx)
		}
		refresh = false

		switch {
		case err != nil:
			fmt.Fprintf(out, "%s\n", events.UserMessage(err, fallback))
		case fetched:
			if err := render(feed.Query(), page); err != nil {
				return err
			}
		}

		fmt.Fprintf(out, "%s\n> ", browseHelp)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "q" || line == "quit":
			return nil
		case line == "n" || line == "next":
			if !feed.Next() {
				fmt.Fprintln(out, "Already on the last page.")
			}
		case line == "p" || line == "prev":
			if !feed.Previous() {
				fmt.Fprintln(out, "Already on the first page.")
			}
		case line == "l" || line == "list":
			last, q := feed.Last()
			if err := render(q, last); err != nil {
				return err
			}
		case line == "r" || line == "refresh":
			refresh = true
		case strings.HasPrefix(line, "/"):
			feed.SetTerm(strings.TrimPrefix(line, "/"))
		case line == "":
		default:
			fmt.Fprintf(out, "Unknown command %q.\n", line)
		}
	}
}
