package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dxblostfound/lostfound/pkg/locator"
	"github.com/dxblostfound/lostfound/pkg/matching"
)

func testLedger(t *testing.T) *matching.ActivityLedger {
	t.Helper()
	loc, err := locator.New("http://h")
	if err != nil {
		t.Fatal(err)
	}
	policy, err := matching.NewPolicy(matching.DefaultFloor, 0)
	if err != nil {
		t.Fatal(err)
	}
	c := matching.NewClassifier(matching.NewAdapter(loc), policy)

	item := func(id, desc, where, place string) matching.RawItem {
		return matching.RawItem{ID: id, Description: desc, LocationType: where, LocationDetail: place,
			TimeFrame: "Today", ImageURL: "/media/" + id + ".jpg", CreatedAt: "2025-03-01T10:00:00"}
	}
	ledger, err := c.Aggregate(matching.HistoryPayload{
		LostItems: []matching.RawItemWithMatches{
			{Item: item("7", "Blue backpack", "Metro", "Union"), Matches: []matching.RawMatch{
				{Item: item("a", "Backpack", "Metro", ""), Similarity: 0.6},
				{Item: item("b", "Bag", "Taxi", ""), Similarity: 0.9},
				{Item: item("c", "Wallet", "Mall", ""), Similarity: 0.3},
			}},
			{Item: item("8", "Keys", "Mall", "")},
		},
		FoundItems: []matching.RawItemWithMatches{
			{Item: item("a", "Backpack", "Metro", "")},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return ledger
}

func TestPrintLedger(t *testing.T) {
	ledger := testLedger(t)
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{
			name: "defaults",
			opts: Options{},
			want: "7 Metro - Union Today Blue backpack\n8 Mall Today Keys\n",
		},
		{
			name: "best match",
			opts: Options{Flags: "isp", Delimiter: ","},
			want: "7,High match,90%\n8,,\n",
		},
		{
			name: "with matches",
			opts: Options{Flags: "ikp", Delimiter: "|", WithMatches: true},
			want: "7|lost|90%\n  -> a|found|60%\n  -> b|found|90%\n8|lost|\n",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := PrintLedger(&buf, ledger, matching.KindLost, tc.opts); err != nil {
				t.Fatal(err)
			}
			if buf.String() != tc.want {
				t.Fatalf("got\n%q\nwant\n%q", buf.String(), tc.want)
			}
		})
	}
}

func TestPrintMatches(t *testing.T) {
	matches := testLedger(t).Matches(matching.KindLost, "7")
	var buf bytes.Buffer
	if err := PrintMatches(&buf, matches, Options{Flags: "ipsu", Delimiter: " "}); err != nil {
		t.Fatal(err)
	}
	want := "a 60% Possible match http://h/media/a.jpg\nb 90% High match http://h/media/b.jpg\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestInvalidFlag(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintMatches(&buf, nil, Options{Flags: "ix"}); err == nil {
		t.Fatal("expected an error for flag x")
	}
	if err := PrintLedger(&buf, testLedger(t), matching.KindLost, Options{Flags: "z"}); err == nil {
		t.Fatal("expected an error for flag z")
	}
	if buf.Len() != 0 {
		t.Fatal("output written despite invalid flags")
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintSummary(&buf, testLedger(t)); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), buf.String())
	}
	fields := func(s string) string { return strings.Join(strings.Fields(s), " ") }
	if got := fields(lines[1]); got != "lost 2 1 2" {
		t.Fatalf("lost row = %q", got)
	}
	if got := fields(lines[2]); got != "found 1 0 0" {
		t.Fatalf("found row = %q", got)
	}
	if got := fields(lines[4]); got != "TOTAL 3 1 2" {
		t.Fatalf("total row = %q", got)
	}
}

func TestTables(t *testing.T) {
	ledger := testLedger(t)
	out := LedgerTable(ledger, matching.KindLost)
	for _, want := range []string{"Blue backpack", "Metro - Union", "90% High match (b)", "Keys"} {
		if !strings.Contains(out, want) {
			t.Errorf("ledger table missing %q:\n%s", want, out)
		}
	}
	out = MatchTable(ledger.Matches(matching.KindLost, "7"))
	for _, want := range []string{"60%", "Possible match", "Bag"} {
		if !strings.Contains(out, want) {
			t.Errorf("match table missing %q:\n%s", want, out)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, testLedger(t)); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Fatal("missing trailing newline")
	}
}
