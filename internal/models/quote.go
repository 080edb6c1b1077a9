package models

// Quote represents a single quotation extracted from a book.
type Quote struct {
	ID         string `json:"id" db:"id"`
	BookID     string `json:"book_id" db:"book_id"`
	Text       string `json:"quote_text" db:"quote_text"`
	Page       int    `json:"page,omitempty" db:"page"`
	Section    string `json:"section,omitempty" db:"section"`
	Keywords   string `json:"keywords,omitempty" db:"keywords"`
	SourceFile string `json:"source_file,omitempty" db:"source_file"`
}

// QuoteDetail is a quote joined with its book and a citation string,
// as served by the single-quote lookup endpoint.
type QuoteDetail struct {
	Quote
	Book     Book   `json:"book"`
	Citation string `json:"citation"`
}
