package matching

import (
	"fmt"
	"strings"
	"time"

	"github.com/dxblostfound/lostfound/pkg/locator"
)

const (
	PlaceholderDescription = "No description"
	PlaceholderUnknown     = "Unknown"
)

// Accepted creation timestamp layouts. Fractional seconds are accepted by
// time.Parse after the seconds field even when the layout omits them, and
// layouts without a zone parse as UTC.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Adapter maps raw backend records into ItemRecords.
type Adapter struct {
	Locator locator.Normalizer
}

func NewAdapter(loc locator.Normalizer) Adapter {
	return Adapter{Locator: loc}
}

// ToItemRecord converts raw using the kind of the list it came from. The
// record's own type field is ignored.
func (a Adapter) ToItemRecord(raw RawItem, kind Kind) (ItemRecord, error) {
	if !kind.Valid() {
		return ItemRecord{}, &RecordError{Kind: kind, ID: raw.ID, Err: ErrInvalidKind}
	}
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return ItemRecord{}, &RecordError{Kind: kind, Err: ErrMissingIdentifier}
	}

	createdAt, err := ParseTimestamp(raw.CreatedAt)
	if err != nil {
		return ItemRecord{}, &RecordError{Kind: kind, ID: id, Err: err}
	}

	return ItemRecord{
		ID:            id,
		Kind:          kind,
		Title:         raw.Title,
		Description:   firstNonEmpty(raw.Description, raw.Title, PlaceholderDescription),
		Where:         firstNonEmpty(raw.LocationType, PlaceholderUnknown),
		SpecificPlace: raw.LocationDetail,
		When:          firstNonEmpty(raw.TimeFrame, PlaceholderUnknown),
		ImageURL:      a.Locator.Normalize(raw.ImageURL),
		CreatedAt:     createdAt,
	}, nil
}

// ParseTimestamp parses the backend's ISO-like creation time.
func ParseTimestamp(s string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrMalformedTimestamp)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
