package cmd

import (
	"context"

	"github.com/Togather-Foundation/eventhub/internal/access"
	"github.com/Togather-Foundation/eventhub/internal/listing"
	"github.com/spf13/cobra"
)

func newCatalogCommand(opts *rootOptions) *cobra.Command {
	var (
		page   int
		limit  int
		search string
		format string
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List items from the external catalog",
		Long: `List one page of the external, read-only catalog.

The catalog has no server-side search: --search only filters the fetched page
by title, so a later page may still hold matches.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.authorize(access.RouteCatalog); err != nil {
					return err
				}
				if limit <= 0 {
					limit = a.cfg.Listing.CatalogPageSize
				}
				q := listing.NewQuery(page, limit, search)
				result, err := a.catalogAdapter().List(ctx, q)
				if err != nil {
					return fail(err, "Failed to load catalog")
				}
				return printCatalog(cmd.OutOrStdout(), format, q, result)
			})
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number (starts at 1)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "items per page (default from config)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter the page by title")
	cmd.Flags().StringVar(&format, "format", formatTable, "output format (table, json)")

	return cmd
}
