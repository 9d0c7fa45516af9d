package backend

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dxblostfound/lostfound/pkg/matching"
)

// SubmitResponse is the backend's answer to a new report: the created item
// and its candidates of the opposite kind.
type SubmitResponse struct {
	Item    matching.RawItem
	Matches []matching.RawMatch
}

func decodeSubmitResponse(body []byte) (*SubmitResponse, error) {
	root, err := parseObject(body)
	if err != nil {
		return nil, err
	}
	entry, err := decodeItemWithMatches(root, "response")
	if err != nil {
		return nil, err
	}
	return &SubmitResponse{Item: entry.Item, Matches: entry.Matches}, nil
}

func decodeHistory(body []byte) (*matching.HistoryPayload, error) {
	root, err := parseObject(body)
	if err != nil {
		return nil, err
	}

	payload := &matching.HistoryPayload{}
	lists := []struct {
		path string
		dst  *[]matching.RawItemWithMatches
	}{
		{"lost_items", &payload.LostItems},
		{"found_items", &payload.FoundItems},
	}
	for _, list := range lists {
		value := root.Get(list.path)
		*list.dst = []matching.RawItemWithMatches{}
		if !value.Exists() || value.Type == gjson.Null {
			continue
		}
		if !value.IsArray() {
			return nil, fmt.Errorf("%w: %s is not a list", ErrMalformedResponse, list.path)
		}
		for i, raw := range value.Array() {
			entry, err := decodeItemWithMatches(raw, fmt.Sprintf("%s.%d", list.path, i))
			if err != nil {
				return nil, err
			}
			*list.dst = append(*list.dst, entry)
		}
	}
	return payload, nil
}

func parseObject(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: body is not JSON", ErrMalformedResponse)
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: expected an object", ErrMalformedResponse)
	}
	return root, nil
}

func decodeItemWithMatches(value gjson.Result, where string) (matching.RawItemWithMatches, error) {
	if !value.IsObject() {
		return matching.RawItemWithMatches{}, fmt.Errorf("%w: %s is not an object", ErrMalformedResponse, where)
	}
	item, err := decodeItem(value.Get("item"), where+".item")
	if err != nil {
		return matching.RawItemWithMatches{}, err
	}

	out := matching.RawItemWithMatches{Item: item, Matches: []matching.RawMatch{}}
	matches := value.Get("matches")
	if !matches.Exists() || matches.Type == gjson.Null {
		return out, nil
	}
	if !matches.IsArray() {
		return matching.RawItemWithMatches{}, fmt.Errorf("%w: %s.matches is not a list", ErrMalformedResponse, where)
	}
	for i, m := range matches.Array() {
		at := fmt.Sprintf("%s.matches.%d", where, i)
		if !m.IsObject() {
			return matching.RawItemWithMatches{}, fmt.Errorf("%w: %s is not an object", ErrMalformedResponse, at)
		}
		candidate, err := decodeItem(m.Get("item"), at+".item")
		if err != nil {
			return matching.RawItemWithMatches{}, err
		}
		similarity := m.Get("similarity")
		if similarity.Type != gjson.Number {
			return matching.RawItemWithMatches{}, fmt.Errorf("%w: %s.similarity is not a number", ErrMalformedResponse, at)
		}
		out.Matches = append(out.Matches, matching.RawMatch{Item: candidate, Similarity: similarity.Float()})
	}
	return out, nil
}

func decodeItem(value gjson.Result, where string) (matching.RawItem, error) {
	if !value.IsObject() {
		return matching.RawItem{}, fmt.Errorf("%w: %s is not an object", ErrMalformedResponse, where)
	}
	return matching.RawItem{
		ID:             scalar(value.Get("id")),
		Type:           scalar(value.Get("type")),
		Title:          scalar(value.Get("title")),
		Description:    scalar(value.Get("description")),
		LocationType:   scalar(value.Get("location_type")),
		LocationDetail: scalar(value.Get("location_detail")),
		TimeFrame:      scalar(value.Get("time_frame")),
		ImageURL:       scalar(value.Get("image_url")),
		CreatedAt:      scalar(value.Get("created_at")),
	}, nil
}

// scalar renders strings, numbers and booleans; absent, null and nested
// values become the empty string.
func scalar(r gjson.Result) string {
	switch r.Type {
	case gjson.String, gjson.Number, gjson.True, gjson.False:
		return r.String()
	}
	return ""
}

// errorDetail extracts FastAPI-style {"detail": ...} messages.
func errorDetail(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	detail := gjson.GetBytes(body, "detail")
	switch {
	case detail.Type == gjson.String:
		return detail.Str
	case detail.IsArray():
		var msgs []string
		for _, d := range detail.Array() {
			msg := d.Get("msg").String()
			if loc := d.Get("loc").Array(); len(loc) > 0 && msg != "" {
				msg = loc[len(loc)-1].String() + ": " + msg
			}
			if msg != "" {
				msgs = append(msgs, msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
