package matching

import (
	"fmt"
	"strings"
	"time"
)

// Kind says whether an item was reported lost or found. It always comes from
// the list an item was read from, never from the record itself.
type Kind string

const (
	KindLost  Kind = "lost"
	KindFound Kind = "found"
)

// Opposite returns the kind candidates of k are drawn from.
func (k Kind) Opposite() Kind {
	switch k {
	case KindLost:
		return KindFound
	case KindFound:
		return KindLost
	}
	return ""
}

func (k Kind) Valid() bool {
	return k == KindLost || k == KindFound
}

// Title is the capitalized kind, as shown on badges.
func (k Kind) Title() string {
	switch k {
	case KindLost:
		return "Lost"
	case KindFound:
		return "Found"
	}
	return string(k)
}

// ParseKind accepts "lost" or "found" in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// ItemRecord is the canonical form of a reported item.
type ItemRecord struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Where       string `json:"where"`
	// SpecificPlace is empty when the report carried no location detail.
	SpecificPlace string    `json:"specific_place,omitempty"`
	When          string    `json:"when"`
	ImageURL      string    `json:"image_url"`
	CreatedAt     time.Time `json:"created_at"`
}

// HasImage reports whether the record resolved to a fetchable image.
func (r ItemRecord) HasImage() bool {
	return r.ImageURL != ""
}

// Key returns the ledger key of the record.
func (r ItemRecord) Key() MatchKey {
	return MatchKey{Kind: r.Kind, ID: r.ID}
}

// Status is the coarse band a similarity score falls into.
type Status string

const (
	StatusPossible Status = "possible"
	StatusHigh     Status = "high"
	StatusExact    Status = "exact"
)

// Label is the human-readable badge text for s.
func (s Status) Label() string {
	switch s {
	case StatusPossible:
		return "Possible match"
	case StatusHigh:
		return "High match"
	case StatusExact:
		return "Exact match"
	}
	return string(s)
}

// ClassifiedMatch is a candidate that passed the floor filter.
type ClassifiedMatch struct {
	ID                string     `json:"id"`
	Item              ItemRecord `json:"item"`
	Similarity        float64    `json:"similarity"`
	SimilarityPercent int        `json:"similarity_percent"`
	Status            Status     `json:"status"`
}

// MatchKey identifies an item in the ledger. Lost and found identifiers live
// in separate keyspaces.
type MatchKey struct {
	Kind Kind
	ID   string
}

func (k MatchKey) String() string {
	return string(k.Kind) + ":" + k.ID
}
