package events

import (
	"time"
)

// DateInputLayout is the form in which drafts carry dates (an HTML
// datetime-local value) when pre-filled from an existing event.
const DateInputLayout = "2006-01-02T15:04"

// MaxImageBytes is the largest image a draft may attach (5 MiB).
const MaxImageBytes = 5 * 1024 * 1024

// Event is a record of the local event store. ID, ImageRef, CreatedAt and
// UpdatedAt are assigned by the backend. An empty ImageRef means no image.
type Event struct {
	ID          string
	Title       string
	Description string
	Date        time.Time
	Location    string
	ImageRef    string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (e Event) HasImage() bool { return e.ImageRef != "" }

// Image is raw image data selected for upload.
type Image struct {
	Name string
	Data []byte
}

func (i *Image) Size() int {
	if i == nil {
		return 0
	}
	return len(i.Data)
}

// Draft is the unsaved form state of an event. Date holds the text as entered.
// A nil Image means "no new image": on update the backend keeps the existing one.
type Draft struct {
	Title       string
	Description string
	Date        string
	Location    string
	Image       *Image
}

func (d Draft) IsBlank() bool {
	return d.Title == "" && d.Description == "" && d.Date == "" && d.Location == "" && d.Image == nil
}

// DraftFromEvent pre-fills a draft for editing. The pending image is always empty.
func DraftFromEvent(e Event, loc *time.Location) Draft {
	if loc == nil {
		loc = time.Local
	}
	date := ""
	if !e.Date.IsZero() {
		date = e.Date.In(loc).Format(DateInputLayout)
	}
	return Draft{
		Title:       e.Title,
		Description: e.Description,
		Date:        date,
		Location:    e.Location,
	}
}

// Payload is a validated draft ready to send to the backend.
type Payload struct {
	Title       string
	Description string
	Date        time.Time
	Location    string
	Image       *Image
}
