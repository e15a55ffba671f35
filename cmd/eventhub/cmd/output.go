package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/blob"
	"github.com/Togather-Foundation/eventhub/internal/catalog"
	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/Togather-Foundation/eventhub/internal/listing"
	"github.com/Togather-Foundation/eventhub/internal/sanitize"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func validateFormat(format string) error {
	if format != formatTable && format != formatJSON {
		return fmt.Errorf("invalid format %q (valid: table, json)", format)
	}
	return nil
}

type eventJSON struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location,omitempty"`
	Image       string    `json:"image,omitempty"`
}

type eventsJSON struct {
	Page   int         `json:"page"`
	Limit  int         `json:"limit"`
	Search string      `json:"search,omitempty"`
	Total  int         `json:"total"`
	Events []eventJSON `json:"events"`
}

func printEvents(w io.Writer, format string, q listing.Query, page listing.Page[events.Event], images *blob.Resolver, loc *time.Location) error {
	if format == formatJSON {
		out := eventsJSON{Page: q.Page, Limit: q.Size, Search: q.Term, Total: page.Total, Events: []eventJSON{}}
		for _, e := range page.Items {
			out.Events = append(out.Events, eventJSON{
				ID:          e.ID,
				Title:       e.Title,
				Description: e.Description,
				Date:        e.Date,
				Location:    e.Location,
				Image:       images.Resolve(e.ImageRef),
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(page.Items) == 0 {
		fmt.Fprintln(w, "No events found.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tDATE\tLOCATION\tIMAGE")
		for _, e := range page.Items {
			image := "-"
			if e.HasImage() {
				image = images.Resolve(e.ImageRef)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				e.ID,
				truncate(sanitize.Plain(e.Title), 40),
				formatDate(e.Date, loc),
				truncate(sanitize.Plain(e.Location), 30),
				image,
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	fmt.Fprintln(w, pageSummary(q, page.Total, page.TotalKnown, len(page.Items)))
	return nil
}

type catalogJSON struct {
	Page   int                    `json:"page"`
	Limit  int                    `json:"limit"`
	Search string                 `json:"search,omitempty"`
	Items  []catalog.ExternalItem `json:"items"`
}

func printCatalog(w io.Writer, format string, q listing.Query, page listing.Page[catalog.ExternalItem]) error {
	if format == formatJSON {
		items := page.Items
		if items == nil {
			items = []catalog.ExternalItem{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(catalogJSON{Page: q.Page, Limit: q.Size, Search: q.Term, Items: items})
	}

	if len(page.Items) == 0 {
		fmt.Fprintln(w, "No items found.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tDESCRIPTION")
		for _, item := range page.Items {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", item.ExternalID, truncate(item.Title, 40), truncate(item.Description, 60))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	fmt.Fprintln(w, pageSummary(q, 0, false, len(page.Items)))
	return nil
}

func pageSummary(q listing.Query, total int, totalKnown bool, shown int) string {
	var b strings.Builder
	if totalKnown {
		last := listing.Page[struct{}]{Total: total, TotalKnown: true}.LastPage(q.Size)
		if last < 1 {
			last = 1
		}
		fmt.Fprintf(&b, "Page %d of %d (%d total)", q.Page, last, total)
	} else {
		fmt.Fprintf(&b, "Page %d (%d shown)", q.Page, shown)
	}
	if q.Term != "" {
		fmt.Fprintf(&b, ", search %q", q.Term)
	}
	return b.String()
}

func formatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("Mon Jan 2 2006 15:04")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
