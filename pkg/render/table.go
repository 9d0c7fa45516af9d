package render

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/dxblostfound/lostfound/pkg/matching"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// LedgerTable renders the items of kind with their match counts and best
// match.
func LedgerTable(ledger *matching.ActivityLedger, kind matching.Kind) string {
	headers := []string{"ID", "Description", "Where", "When", "Matches", "Best"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}

	var rows [][]string
	if ledger != nil {
		for _, item := range ledger.Items(kind) {
			matches := ledger.MatchesFor(item)
			best := "-"
			if b, ok := bestMatch(matches); ok {
				best = Percent(b) + " " + b.Status.Label() + " (" + b.ID + ")"
			}
			rows = append(rows, []string{item.ID, item.Description, Place(item), item.When, strconv.Itoa(len(matches)), best})
		}
	}
	return renderTable(headers, rows, aligns)
}

// MatchTable renders a submission's classified candidates.
func MatchTable(matches []matching.ClassifiedMatch) string {
	headers := []string{"ID", "Similarity", "Status", "Description", "Where", "When"}
	aligns := []columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft}

	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, []string{m.ID, Percent(m), m.Status.Label(), m.Item.Description, Place(m.Item), m.Item.When})
	}
	return renderTable(headers, rows, aligns)
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    48,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
