package matching

// RawItem is an item record as the backend sends it. Absent and null fields
// are empty strings; numeric identifiers are kept in their decimal form.
type RawItem struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	LocationType   string `json:"location_type"`
	LocationDetail string `json:"location_detail"`
	TimeFrame      string `json:"time_frame"`
	ImageURL       string `json:"image_url"`
	CreatedAt      string `json:"created_at"`
}

// RawMatch pairs a candidate item with its similarity to the source item.
// The similarity is documented as [0,1] but nothing enforces it.
type RawMatch struct {
	Item       RawItem `json:"item"`
	Similarity float64 `json:"similarity"`
}

// RawItemWithMatches is one entry of a history list.
type RawItemWithMatches struct {
	Item    RawItem    `json:"item"`
	Matches []RawMatch `json:"matches"`
}

// HistoryPayload is the full history response.
type HistoryPayload struct {
	LostItems  []RawItemWithMatches `json:"lost_items"`
	FoundItems []RawItemWithMatches `json:"found_items"`
}
