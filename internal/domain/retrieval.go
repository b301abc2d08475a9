package domain

// Hit is one ranked document returned from the knowledge store.
type Hit struct {
	ID       string         `json:"id"`
	Document string         `json:"document"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

// RetrievalResult holds the hits for a query, best first.
// len(Hits) never exceeds the K that was requested.
type RetrievalResult struct {
	Query string `json:"query"`
	Hits  []Hit  `json:"hits"`
}
