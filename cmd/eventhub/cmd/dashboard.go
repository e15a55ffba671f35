package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/access"
	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/Togather-Foundation/eventhub/internal/form"
	"github.com/Togather-Foundation/eventhub/internal/listing"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// lookupPageSize is the page size used when scanning for an event by id.
const lookupPageSize = 50

// stalePreviewAge is how old a leftover preview file must be before it is removed.
const stalePreviewAge = time.Hour

// draftFlags are the event fields shared by create and edit.
type draftFlags struct {
	title        string
	description  string
	date         string
	location     string
	imagePath    string
	naturalDates bool
}

func (f *draftFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.title, "title", "", "event title")
	flags.StringVar(&f.description, "description", "", "event description")
	flags.StringVar(&f.date, "date", "", `event date, e.g. "2026-03-14T19:30"`)
	flags.StringVar(&f.location, "location", "", "event location")
	flags.StringVar(&f.imagePath, "image", "", "image file to upload (max 5 MiB)")
	flags.BoolVar(&f.naturalDates, "natural-dates", false, `also accept dates like "next friday 7pm"`)
}

// apply copies the flags that were set onto the form.
func (f *draftFlags) apply(flags *pflag.FlagSet, ctl *form.Controller) error {
	if flags.Changed("title") {
		ctl.SetTitle(f.title)
	}
	if flags.Changed("description") {
		ctl.SetDescription(f.description)
	}
	if flags.Changed("date") {
		ctl.SetDate(f.date)
	}
	if flags.Changed("location") {
		ctl.SetLocation(f.location)
	}
	if f.imagePath != "" {
		info, err := os.Stat(f.imagePath)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		if info.Size() > events.MaxImageBytes {
			return events.ValidationError{Field: "image", Message: "must not exceed 5 MiB"}
		}
		data, err := os.ReadFile(f.imagePath)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		if err := ctl.SelectImage(filepath.Base(f.imagePath), data); err != nil {
			return err
		}
	}
	return nil
}

func newDashboardCommand(opts *rootOptions) *cobra.Command {
	var (
		page   int
		search string
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Manage local events (admin only)",
		Long: `Create, edit and delete local events. Requires an admin session.

Without a subcommand, lists events with their ids.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.authorize(access.RouteDashboard); err != nil {
					return err
				}
				q := listing.NewQuery(page, a.cfg.Listing.EventsPageSize, search)
				result, err := a.eventRepository(false).List(ctx, q)
				if err != nil {
					return fail(err, "Failed to load events")
				}
				return printEvents(cmd.OutOrStdout(), formatTable, q, result, a.images, a.cfg.Backend.Location())
			})
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number (starts at 1)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "search term")

	cmd.AddCommand(
		newDashboardCreateCommand(opts),
		newDashboardEditCommand(opts),
		newDashboardDeleteCommand(opts),
	)
	return cmd
}

func newDashboardCreateCommand(opts *rootOptions) *cobra.Command {
	flags := &draftFlags{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		Example: `  eventhub dashboard create --title "Jazz Night" --date 2026-03-14T19:30 \
    --location "Blue Room" --image poster.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.authorize(access.RouteDashboard); err != nil {
					return err
				}
				ctl := a.newForm(a.eventRepository(flags.naturalDates), nil)
				defer func() { _ = ctl.Close() }()

				if err := flags.apply(cmd.Flags(), ctl); err != nil {
					return fail(err, "Failed to save event")
				}
				if ctl.Draft().IsBlank() {
					return errors.New("nothing to create; set at least --title and --date")
				}
				created, err := ctl.Submit(ctx)
				if err != nil {
					return fail(err, "Failed to save event")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created event %s: %s\n", created.ID, created.Title)
				return nil
			})
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func newDashboardEditCommand(opts *rootOptions) *cobra.Command {
	flags := &draftFlags{}

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit an event",
		Long: `Edit an existing event. Only the fields given as flags change; without
--image the stored image is kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.authorize(access.RouteDashboard); err != nil {
					return err
				}
				repo := a.eventRepository(flags.naturalDates)
				existing, err := findEvent(ctx, repo, id)
				if err != nil {
					return fail(err, "Failed to load events")
				}

				ctl := a.newForm(repo, nil)
				defer func() { _ = ctl.Close() }()
				if err := ctl.Edit(existing); err != nil {
					return fail(err, "Failed to load events")
				}

				if err := flags.apply(cmd.Flags(), ctl); err != nil {
					return fail(err, "Failed to save event")
				}
				updated, err := ctl.Submit(ctx)
				if err != nil {
					return fail(err, "Failed to save event")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated event %s: %s\n", updated.ID, updated.Title)
				return nil
			})
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func newDashboardDeleteCommand(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return runWithApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.authorize(access.RouteDashboard); err != nil {
					return err
				}
				repo := a.eventRepository(false)

				title := ""
				if existing, err := findEvent(ctx, repo, id); err == nil {
					title = existing.Title
				}

				var confirmer form.Confirmer = promptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
				if yes {
					confirmer = form.ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
				}
				ctl := a.newForm(repo, confirmer)
				defer func() { _ = ctl.Close() }()

				deleted, err := ctl.Delete(ctx, id, title)
				if err != nil {
					return fail(err, "Failed to delete event")
				}
				if !deleted {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted event %s\n", id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func (a *app) newForm(repo form.Repository, confirmer form.Confirmer) *form.Controller {
	previewer := form.NewTempPreviewer("")
	if removed, err := previewer.Sweep(stalePreviewAge); err != nil {
		a.logger.Warn().Err(err).Msg("failed to remove stale previews")
	} else if removed > 0 {
		a.logger.Debug().Int("removed", removed).Msg("removed stale previews")
	}

	opts := []form.Option{
		form.WithLocation(a.cfg.Backend.Location()),
		form.WithPreviewer(previewer),
	}
	if confirmer != nil {
		opts = append(opts, form.WithConfirmer(confirmer))
	}
	return form.NewController(repo, a.logger, opts...)
}

// findEvent scans the listing for id. The backend has no single-event read.
func findEvent(ctx context.Context, repo *events.Repository, id string) (events.Event, error) {
	for page := 1; ; page++ {
		result, err := repo.List(ctx, listing.NewQuery(page, lookupPageSize, ""))
		if err != nil {
			return events.Event{}, err
		}
		for _, e := range result.Items {
			if e.ID == id {
				return e, nil
			}
		}
		if len(result.Items) == 0 || (result.TotalKnown && page >= result.LastPage(lookupPageSize)) {
			return events.Event{}, events.NotFoundError{ID: id}
		}
	}
}

// promptConfirmer asks on out and reads a y/N answer from in.
func promptConfirmer(in io.Reader, out io.Writer) form.Confirmer {
	reader := bufio.NewReader(in)
	return form.ConfirmFunc(func(ctx context.Context, prompt string) (bool, error) {
		fmt.Fprintf(out, "%s [y/N] ", prompt)
		answer, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	})
}
