package catalog

import "strings"

// Locations are the location types offered on report forms, in display order.
var Locations = []string{
	"Mall",
	"Taxi",
	"Metro",
	"Airport",
	"School / University",
	"Event / Venue",
	"Street / Public Area",
	"Other",
}

// TimeFrames are the time windows offered on report forms, in display order.
var TimeFrames = []string{
	"Today",
	"Yesterday",
	"Last 3 days",
	"Last week",
	"Earlier",
}

// locationAliases groups the spellings accepted on the command line under
// each canonical label. The lowercased label itself is always accepted.
var locationAliases = map[string][]string{
	"Mall":                 {"shopping mall", "shopping centre", "shopping center", "mall"},
	"Taxi":                 {"cab", "taxi", "uber", "careem"},
	"Metro":                {"subway", "tram", "train", "metro"},
	"Airport":              {"dxb", "dwc", "terminal", "airport"},
	"School / University":  {"school", "uni", "university", "college", "campus"},
	"Event / Venue":        {"event", "venue", "concert", "stadium"},
	"Street / Public Area": {"street", "public", "public area", "park", "beach"},
	"Other":                {"other", "elsewhere"},
}

var timeFrameAliases = map[string][]string{
	"Today":       {"today", "now", "0d"},
	"Yesterday":   {"yesterday", "1d"},
	"Last 3 days": {"3d", "3 days", "last3days", "last-3-days"},
	"Last week":   {"week", "7d", "1w", "last-week"},
	"Earlier":     {"earlier", "older", "before"},
}

var (
	locationMap  map[string]string
	timeFrameMap map[string]string
)

func init() {
	locationMap = reverse(locationAliases)
	timeFrameMap = reverse(timeFrameAliases)
}

func reverse(aliases map[string][]string) map[string]string {
	out := make(map[string]string)
	for canonical, raws := range aliases {
		out[key(canonical)] = canonical
		for _, raw := range raws {
			out[key(raw)] = canonical
		}
	}
	return out
}

func key(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NormalizeLocation maps user input to a canonical location type.
func NormalizeLocation(s string) (string, bool) {
	canonical, ok := locationMap[key(s)]
	return canonical, ok
}

// NormalizeTimeFrame maps user input to a canonical time window.
func NormalizeTimeFrame(s string) (string, bool) {
	canonical, ok := timeFrameMap[key(s)]
	return canonical, ok
}
