package catalog

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/Togather-Foundation/eventhub/internal/sanitize"
)

// ExternalItem is one entry of the third-party catalog. It is read-only and
// never persisted.
type ExternalItem struct {
	ExternalID   string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	ThumbnailRef string `json:"thumbnail,omitempty"`
}

// externalID decodes the catalog's numeric or string ids.
type externalID string

func (e *externalID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*e = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = externalID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*e = externalID(n.String())
	return nil
}

type wireItem struct {
	ID          externalID `json:"id"`
	Title       string     `json:"title"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Thumbnail   string     `json:"thumbnail"`
	Image       string     `json:"image"`
}

type fetchResponse struct {
	Items    []wireItem `json:"items"`
	Products []wireItem `json:"products"`
}

func (r fetchResponse) entries() []wireItem {
	if r.Items != nil {
		return r.Items
	}
	return r.Products
}

func (w wireItem) toItem() ExternalItem {
	title := w.Title
	if title == "" {
		title = w.Name
	}
	thumb := w.Thumbnail
	if thumb == "" {
		thumb = w.Image
	}
	return ExternalItem{
		ExternalID:   string(w.ID),
		Title:        sanitize.Plain(title),
		Description:  sanitize.Plain(w.Description),
		ThumbnailRef: strings.TrimSpace(thumb),
	}
}

// matchTitle is the local search rule: case-insensitive substring of the title.
func matchTitle(items []ExternalItem, term string) []ExternalItem {
	if term == "" {
		return items
	}
	needle := strings.ToLower(term)
	matched := make([]ExternalItem, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Title), needle) {
			matched = append(matched, item)
		}
	}
	return matched
}
