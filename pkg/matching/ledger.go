package matching

import (
	"encoding/json"
	"sort"
)

// ActivityLedger is the dashboard's snapshot of reported items and their
// classified matches. It is built in one piece by Aggregate and never
// modified afterwards; accessors hand out copies.
type ActivityLedger struct {
	lostItems  []ItemRecord
	foundItems []ItemRecord
	matches    map[MatchKey][]ClassifiedMatch
}

// LostItems returns the lost items in backend order.
func (l *ActivityLedger) LostItems() []ItemRecord {
	return append([]ItemRecord(nil), l.lostItems...)
}

// FoundItems returns the found items in backend order.
func (l *ActivityLedger) FoundItems() []ItemRecord {
	return append([]ItemRecord(nil), l.foundItems...)
}

// Items returns the items of one kind.
func (l *ActivityLedger) Items(kind Kind) []ItemRecord {
	switch kind {
	case KindLost:
		return l.LostItems()
	case KindFound:
		return l.FoundItems()
	}
	return nil
}

// Matches returns the classified matches of the item (kind, id) in backend
// order. Unknown items have no matches.
func (l *ActivityLedger) Matches(kind Kind, id string) []ClassifiedMatch {
	return append([]ClassifiedMatch(nil), l.matches[MatchKey{Kind: kind, ID: id}]...)
}

// MatchesFor is Matches keyed by a record.
func (l *ActivityLedger) MatchesFor(item ItemRecord) []ClassifiedMatch {
	return l.Matches(item.Kind, item.ID)
}

// Keys returns every key of the match mapping, lost before found, each kind in
// identifier order.
func (l *ActivityLedger) Keys() []MatchKey {
	keys := make([]MatchKey, 0, len(l.matches))
	for k := range l.matches {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return keys[i].Kind == KindLost
		}
		return keys[i].ID < keys[j].ID
	})
	return keys
}

// MatchCount is the number of classified matches held by items of kind.
func (l *ActivityLedger) MatchCount(kind Kind) int {
	n := 0
	for k, ms := range l.matches {
		if k.Kind == kind {
			n += len(ms)
		}
	}
	return n
}

// Empty reports whether no items of either kind were reported.
func (l *ActivityLedger) Empty() bool {
	return len(l.lostItems) == 0 && len(l.foundItems) == 0
}

type ledgerItemJSON struct {
	ItemRecord
	Matches []ClassifiedMatch `json:"matches"`
}

type ledgerJSON struct {
	LostItems  []ledgerItemJSON `json:"lost_items"`
	FoundItems []ledgerItemJSON `json:"found_items"`
}

// MarshalJSON writes each item with its matches inlined.
func (l *ActivityLedger) MarshalJSON() ([]byte, error) {
	embed := func(items []ItemRecord) []ledgerItemJSON {
		out := make([]ledgerItemJSON, 0, len(items))
		for _, it := range items {
			ms := l.MatchesFor(it)
			if ms == nil {
				ms = []ClassifiedMatch{}
			}
			out = append(out, ledgerItemJSON{ItemRecord: it, Matches: ms})
		}
		return out
	}
	return json.Marshal(ledgerJSON{
		LostItems:  embed(l.lostItems),
		FoundItems: embed(l.foundItems),
	})
}
