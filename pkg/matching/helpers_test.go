package matching

import (
	"encoding/json"
	"testing"

	"github.com/dxblostfound/lostfound/pkg/locator"
)

const testBase = "http://h"

func testAdapter(t *testing.T) Adapter {
	t.Helper()
	loc, err := locator.New(testBase)
	if err != nil {
		t.Fatalf("locator: %v", err)
	}
	return NewAdapter(loc)
}

func testClassifier(t *testing.T, floor float64) Classifier {
	t.Helper()
	policy, err := NewPolicy(floor, 0)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	return NewClassifier(testAdapter(t), policy)
}

func raw(id string) RawItem {
	return RawItem{
		ID:           id,
		Title:        "item " + id,
		LocationType: "Mall",
		TimeFrame:    "Today",
		ImageURL:     `/media\` + id + ".jpg",
		CreatedAt:    "2025-03-01T10:00:00",
	}
}

func candidates(scores ...float64) []RawMatch {
	out := make([]RawMatch, 0, len(scores))
	for i, s := range scores {
		out = append(out, RawMatch{Item: raw(string(rune('a' + i))), Similarity: s})
	}
	return out
}

func mustJSON(v any) string {
	data, _ := json.MarshalIndent(v, "", "  ")
	return string(data)
}
