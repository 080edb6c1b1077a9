package models

// ScoreBreakdown decomposes a quote's final score into its components.
// Invariant: FinalScore = BaseNormalized*baseWeight + FieldScore + PhraseBonus,
// where baseWeight is the configuration's base relevance weight.
type ScoreBreakdown struct {
	QuoteID        string             `json:"quote_id"`
	BaseRaw        float64            `json:"base_raw"`
	BaseNormalized float64            `json:"base_normalized"`
	FieldScore     float64            `json:"field_score"`
	FieldMatches   map[string]float64 `json:"field_matches,omitempty"`
	PhraseBonus    float64            `json:"phrase_bonus"`
	FinalScore     float64            `json:"final_score"`
}

// ScoredQuote is a quote with its computed relevance score. Breakdown is
// populated only on the tuning/debugging path.
type ScoredQuote struct {
	Quote
	Score     float64         `json:"score"`
	Breakdown *ScoreBreakdown `json:"score_breakdown,omitempty"`
}

// BookGroup aggregates one book with its highest-scoring matching quotes.
// HitsCount counts every matching quote for the book, including those
// beyond the top-quote cap; TotalQuotes is the book's quote count
// independent of the query.
type BookGroup struct {
	Book        Book          `json:"book"`
	HitsCount   int           `json:"hits_count"`
	TopQuotes   []ScoredQuote `json:"top_quotes"`
	TotalQuotes int           `json:"total_book_quotes"`
}

// SearchResponse is the paginated, book-grouped result of one search.
// Total is the group count before pagination.
type SearchResponse struct {
	Results []BookGroup `json:"results"`
	Total   int         `json:"total"`
	Offset  int         `json:"offset"`
	Limit   int         `json:"limit"`
	Query   string      `json:"query"`
}
