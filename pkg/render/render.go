package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dxblostfound/lostfound/pkg/matching"
)

// DefaultFlags prints id, where, when and description.
const DefaultFlags = "iwtd"

// Options selects the fields of each printed line.
//
//	i  identifier
//	k  kind
//	d  description
//	w  where (and specific place when known)
//	t  time window
//	s  status label (best match on item lines)
//	p  similarity percent (best match on item lines)
//	u  image url
type Options struct {
	Flags     string
	Delimiter string
	// WithMatches prints each item's matches below it in PrintLedger.
	WithMatches bool
}

func (o Options) normalized() Options {
	if o.Flags == "" {
		o.Flags = DefaultFlags
	}
	if o.Delimiter == "" {
		o.Delimiter = " "
	}
	return o
}

// ValidateFlags rejects unknown output flags.
func ValidateFlags(flags string) error {
	for _, f := range flags {
		if !strings.ContainsRune("ikdwtspu", f) {
			return fmt.Errorf("invalid print flag %q", f)
		}
	}
	return nil
}

// PrintMatches writes one line per match.
func PrintMatches(w io.Writer, matches []matching.ClassifiedMatch, opts Options) error {
	opts = opts.normalized()
	if err := ValidateFlags(opts.Flags); err != nil {
		return err
	}
	for _, m := range matches {
		m := m
		if line := createLine(m.Item, &m, opts); line != "" {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

// PrintLedger writes one line per item of kind, optionally followed by its
// matches prefixed with "  -> ".
func PrintLedger(w io.Writer, ledger *matching.ActivityLedger, kind matching.Kind, opts Options) error {
	opts = opts.normalized()
	if err := ValidateFlags(opts.Flags); err != nil {
		return err
	}
	if ledger == nil {
		return nil
	}
	for _, item := range ledger.Items(kind) {
		matches := ledger.MatchesFor(item)
		var best *matching.ClassifiedMatch
		if b, ok := bestMatch(matches); ok {
			best = &b
		}
		if line := createLine(item, best, opts); line != "" {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		if !opts.WithMatches {
			continue
		}
		for _, m := range matches {
			m := m
			if _, err := fmt.Fprintln(w, "  -> "+createLine(m.Item, &m, opts)); err != nil {
				return err
			}
		}
	}
	return nil
}

func createLine(item matching.ItemRecord, m *matching.ClassifiedMatch, opts Options) string {
	var line string
	for _, f := range opts.Flags {
		switch f {
		case 'i':
			line += item.ID + opts.Delimiter
		case 'k':
			line += string(item.Kind) + opts.Delimiter
		case 'd':
			line += item.Description + opts.Delimiter
		case 'w':
			line += Place(item) + opts.Delimiter
		case 't':
			line += item.When + opts.Delimiter
		case 's':
			if m != nil {
				line += m.Status.Label()
			}
			line += opts.Delimiter
		case 'p':
			if m != nil {
				line += Percent(*m)
			}
			line += opts.Delimiter
		case 'u':
			line += item.ImageURL + opts.Delimiter
		}
	}
	return strings.TrimSuffix(line, opts.Delimiter)
}

// Place is the location type followed by the specific place, if any.
func Place(item matching.ItemRecord) string {
	if item.SpecificPlace == "" {
		return item.Where
	}
	return item.Where + " - " + item.SpecificPlace
}

// Percent renders a match's similarity as "NN%".
func Percent(m matching.ClassifiedMatch) string {
	return strconv.Itoa(m.SimilarityPercent) + "%"
}

// bestMatch is the first match with the highest similarity.
func bestMatch(matches []matching.ClassifiedMatch) (matching.ClassifiedMatch, bool) {
	if len(matches) == 0 {
		return matching.ClassifiedMatch{}, false
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Similarity > best.Similarity {
			best = m
		}
	}
	return best, true
}

// PrintSummary writes per-kind item and match counts.
func PrintSummary(w io.Writer, ledger *matching.ActivityLedger) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "KIND\tITEMS\tWITH MATCHES\tMATCHES\t")

	var totalItems, totalWith, totalMatches int
	for _, kind := range []matching.Kind{matching.KindLost, matching.KindFound} {
		var items, with, count int
		if ledger != nil {
			for _, item := range ledger.Items(kind) {
				n := len(ledger.MatchesFor(item))
				items++
				count += n
				if n > 0 {
					with++
				}
			}
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t\n", kind, items, with, count)
		totalItems += items
		totalWith += with
		totalMatches += count
	}

	fmt.Fprintln(tw, " \t \t \t \t")
	fmt.Fprintf(tw, "TOTAL\t%d\t%d\t%d\t\n", totalItems, totalWith, totalMatches)
	return tw.Flush()
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
