package matching

// Aggregate builds a fresh ledger from a full history payload. Every item is
// adapted with the kind of its list and its candidates are classified with
// c's policy. Any failure aborts the whole aggregate so that match counts are
// never shown for a partial ledger.
func (c Classifier) Aggregate(payload HistoryPayload) (*ActivityLedger, error) {
	ledger := &ActivityLedger{
		lostItems:  make([]ItemRecord, 0, len(payload.LostItems)),
		foundItems: make([]ItemRecord, 0, len(payload.FoundItems)),
		matches:    make(map[MatchKey][]ClassifiedMatch, len(payload.LostItems)+len(payload.FoundItems)),
	}

	lists := []struct {
		kind    Kind
		entries []RawItemWithMatches
		dst     *[]ItemRecord
	}{
		{KindLost, payload.LostItems, &ledger.lostItems},
		{KindFound, payload.FoundItems, &ledger.foundItems},
	}

	for _, list := range lists {
		for _, entry := range list.entries {
			item, err := c.Adapter.ToItemRecord(entry.Item, list.kind)
			if err != nil {
				return nil, err
			}
			key := item.Key()
			if _, dup := ledger.matches[key]; dup {
				return nil, &RecordError{Kind: list.kind, ID: item.ID, Err: ErrDuplicateItem}
			}

			matches, err := c.ClassifyAll(entry.Matches, list.kind)
			if err != nil {
				return nil, err
			}

			*list.dst = append(*list.dst, item)
			ledger.matches[key] = matches
		}
	}

	return ledger, nil
}
