package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/rs/zerolog"
)

// flexID decodes an identifier sent as a string, a number, or a populated
// object carrying its own id.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
	case '{':
		var obj struct {
			ID  flexID `json:"id"`
			OID flexID `json:"_id"`
			Oid string `json:"$oid"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*f = firstID(obj.ID, obj.OID, flexID(obj.Oid))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*f = flexID(n.String())
	}
	return nil
}

func firstID(ids ...flexID) flexID {
	for _, id := range ids {
		if id != "" {
			return id
		}
	}
	return ""
}

type wireEvent struct {
	ID          flexID `json:"id"`
	MongoID     flexID `json:"_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Location    string `json:"location"`
	ImageRef    string `json:"imageRef"`
	ImageURL    string `json:"imageUrl"`
	Image       string `json:"image"`
	OwnerID     flexID `json:"ownerId"`
	CreatedBy   flexID `json:"createdBy"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type listResponse struct {
	Events []wireEvent `json:"events"`
	Total  *int        `json:"total"`
}

// wireTimeLayouts covers what JSON encoders commonly emit for dates.
var wireTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseWireTime reports false for a non-empty value it cannot read.
func parseWireTime(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, true
	}
	for _, layout := range wireTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.UnixMilli(ms).In(loc), true
	}
	return time.Time{}, false
}

func (w wireEvent) toEvent(loc *time.Location, logger zerolog.Logger) events.Event {
	imageRef := w.ImageRef
	if imageRef == "" {
		imageRef = w.ImageURL
	}
	if imageRef == "" {
		imageRef = w.Image
	}
	e := events.Event{
		ID:          string(firstID(w.ID, w.MongoID)),
		Title:       w.Title,
		Description: w.Description,
		Location:    w.Location,
		ImageRef:    strings.TrimSpace(imageRef),
		OwnerID:     string(firstID(w.OwnerID, w.CreatedBy)),
	}

	dates := []struct {
		field string
		raw   string
		dst   *time.Time
	}{
		{"date", w.Date, &e.Date},
		{"createdAt", w.CreatedAt, &e.CreatedAt},
		{"updatedAt", w.UpdatedAt, &e.UpdatedAt},
	}
	for _, d := range dates {
		t, ok := parseWireTime(d.raw, loc)
		if !ok {
			logger.Warn().Str("event_id", e.ID).Str("field", d.field).Str("raw", d.raw).Msg("unreadable date from backend")
		}
		*d.dst = t
	}
	return e
}

// decodeEvent accepts either a bare event or one wrapped as {"event": {...}}.
func decodeEvent(body []byte, loc *time.Location, logger zerolog.Logger) (events.Event, error) {
	var wrapped struct {
		Event *wireEvent `json:"event"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Event != nil {
		return wrapped.Event.toEvent(loc, logger), nil
	}

	var w wireEvent
	if err := json.Unmarshal(body, &w); err != nil {
		return events.Event{}, err
	}
	return w.toEvent(loc, logger), nil
}
