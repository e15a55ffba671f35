package events

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/markusmobius/go-dateparser"
)

// dateLayouts are tried in order before any natural-language parsing.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	DateInputLayout,
	"2006-01-02 15:04",
	"2006-01-02",
}

type draftRules struct {
	Title     string `validate:"required"`
	Date      string `validate:"required"`
	ImageSize int    `validate:"lte=5242880"`
}

// DraftValidator checks a draft locally. It never performs I/O.
type DraftValidator struct {
	validate     *validator.Validate
	location     *time.Location
	naturalDates bool
}

func NewDraftValidator(location *time.Location, naturalDates bool) *DraftValidator {
	if location == nil {
		location = time.Local
	}
	return &DraftValidator{
		validate:     validator.New(),
		location:     location,
		naturalDates: naturalDates,
	}
}

// Validate turns a draft into a payload or returns the first ValidationError.
func (v *DraftValidator) Validate(d Draft) (Payload, error) {
	rules := draftRules{
		Title:     strings.TrimSpace(d.Title),
		Date:      strings.TrimSpace(d.Date),
		ImageSize: d.Image.Size(),
	}
	if err := v.validate.Struct(rules); err != nil {
		return Payload{}, toValidationError(err)
	}

	date, err := v.ParseDate(rules.Date)
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		Title:       rules.Title,
		Description: strings.TrimSpace(d.Description),
		Date:        date,
		Location:    strings.TrimSpace(d.Location),
		Image:       d.Image,
	}, nil
}

// ValidateImage checks a single image selection.
func ValidateImage(img *Image) error {
	if img.Size() > MaxImageBytes {
		return ValidationError{Field: "image", Message: "must not exceed 5 MiB"}
	}
	return nil
}

// ParseDate accepts the fixed layouts in the validator's location and, when
// enabled, natural-language dates such as "next friday 7pm".
func (v *DraftValidator) ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if parsed, err := time.ParseInLocation(layout, value, v.location); err == nil {
			return parsed, nil
		}
	}
	if v.naturalDates {
		if parsed, err := dateparser.Parse(nil, value); err == nil && !parsed.Time.IsZero() {
			return parsed.Time, nil
		}
	}
	return time.Time{}, ValidationError{Field: "date", Message: "must be a valid date and time"}
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return ValidationError{Message: err.Error()}
	}

	fe := verrs[0]
	switch fe.Field() {
	case "Title":
		return ValidationError{Field: "title", Message: "is required"}
	case "Date":
		return ValidationError{Field: "date", Message: "is required"}
	case "ImageSize":
		return ValidationError{Field: "image", Message: "must not exceed 5 MiB"}
	default:
		return ValidationError{Field: strings.ToLower(fe.Field()), Message: fmt.Sprintf("failed %s", fe.Tag())}
	}
}
