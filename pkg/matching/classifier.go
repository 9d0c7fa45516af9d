package matching

import (
	"fmt"
	"math"
)

const (
	// DefaultFloor is the floor every call site uses unless configured.
	DefaultFloor = 0.5
	// HighThreshold is the score from which a match is banded high.
	HighThreshold = 0.75
)

// Policy holds the thresholds of one call site.
type Policy struct {
	// Floor is the minimum similarity for a candidate to be shown at all.
	Floor float64
	// Exact bands a match exact when > 0 and the similarity reaches it.
	// Zero disables the exact band.
	Exact float64
}

// NewPolicy validates floor and exact. Both must lie in [0,1]; a non-zero
// exact must not be below the high threshold.
func NewPolicy(floor, exact float64) (Policy, error) {
	if math.IsNaN(floor) || floor < 0 || floor > 1 {
		return Policy{}, fmt.Errorf("%w: floor %v outside [0,1]", ErrInvalidThreshold, floor)
	}
	if math.IsNaN(exact) || exact < 0 || exact > 1 {
		return Policy{}, fmt.Errorf("%w: exact %v outside [0,1]", ErrInvalidThreshold, exact)
	}
	if exact != 0 && exact < HighThreshold {
		return Policy{}, fmt.Errorf("%w: exact %v below high threshold %v", ErrInvalidThreshold, exact, HighThreshold)
	}
	return Policy{Floor: floor, Exact: exact}, nil
}

// Admits reports whether similarity clears the floor.
func (p Policy) Admits(similarity float64) bool {
	return similarity >= p.Floor
}

// Band returns the status for an admitted similarity.
func (p Policy) Band(similarity float64) Status {
	switch {
	case p.Exact > 0 && similarity >= p.Exact:
		return StatusExact
	case similarity >= HighThreshold:
		return StatusHigh
	default:
		return StatusPossible
	}
}

// Percent converts a similarity into a whole percentage, rounding halves up
// and clamping into [0,100].
func Percent(similarity float64) int {
	pct := math.Floor(similarity*100 + 0.5)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return int(pct)
}

// Classifier is the shared adapt-and-classify step used by the dashboard and
// both submission flows. Each call site owns one with its own Policy.
type Classifier struct {
	Adapter Adapter
	Policy  Policy
}

func NewClassifier(adapter Adapter, policy Policy) Classifier {
	return Classifier{Adapter: adapter, Policy: policy}
}

// Classify returns nil when the candidate falls below the floor. source is the
// kind of the item owning the candidate list; the candidate is adapted with
// the opposite kind.
func (c Classifier) Classify(candidate RawMatch, source Kind) (*ClassifiedMatch, error) {
	if !source.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, source)
	}
	s := candidate.Similarity
	if math.IsNaN(s) {
		return nil, &RecordError{Kind: source.Opposite(), ID: candidate.Item.ID, Err: ErrInvalidSimilarity}
	}
	if !c.Policy.Admits(s) {
		return nil, nil
	}

	item, err := c.Adapter.ToItemRecord(candidate.Item, source.Opposite())
	if err != nil {
		return nil, err
	}

	return &ClassifiedMatch{
		ID:                item.ID,
		Item:              item,
		Similarity:        s,
		SimilarityPercent: Percent(s),
		Status:            c.Policy.Band(s),
	}, nil
}

// ClassifyAll classifies candidates in order, dropping those below the floor.
// The first error aborts the whole list.
func (c Classifier) ClassifyAll(candidates []RawMatch, source Kind) ([]ClassifiedMatch, error) {
	out := make([]ClassifiedMatch, 0, len(candidates))
	for _, candidate := range candidates {
		m, err := c.Classify(candidate, source)
		if err != nil {
			return nil, err
		}
		if m != nil {
			out = append(out, *m)
		}
	}
	return out, nil
}
