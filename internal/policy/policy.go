package policy

// Card describes one regulatory development being tracked alongside the
// market data. Cards are curated by hand and updated with releases, not
// fetched: the authoritative sources are consultation documents without
// a machine-readable feed.
type Card struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	LastUpdated string   `json:"last_updated"`
	SearchURLs  []string `json:"search_urls,omitempty"`
}

// Watchlist returns the current UK ETS policy developments.
func Watchlist() []Card {
	return []Card{
		{
			Title:       "2030 Extension of UK ETS",
			Description: "The UK government is considering extending the UK ETS to 2030 to align with long-term climate goals.",
			Status:      "Under review; consultation closed 9 April 2025, results expected end of 2025",
			LastUpdated: "2025-04-14",
			SearchURLs:  []string{"https://www.google.com/search?q=UK+ETS+Extension+news"},
		},
		{
			Title:       "Possible Linkage with EU ETS",
			Description: "Reports from March 2025 indicate the UK government is considering linking its ETS with the EU's carbon market.",
			Status:      "Interest expressed; formal talks pending",
			LastUpdated: "2025-04-14",
			SearchURLs:  []string{"https://www.google.com/search?q=UK+ETS+EU+linkage"},
		},
		{
			Title:       "Inclusion of Waste Incineration & Maritime Sector",
			Description: "The UK government is exploring bringing waste incineration facilities and the maritime sector into the UK ETS.",
			Status:      "Proposed",
			LastUpdated: "2025-04-14",
			SearchURLs: []string{
				"https://www.google.com/search?q=UK+ETS+waste+incineration",
				"https://www.google.com/search?q=UK+ETS+maritime+shipping",
			},
		},
	}
}
