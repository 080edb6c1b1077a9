// Package scoring defines the searchable field set and the configurable
// weight table used by the ranking engine.
package scoring

// Field identifies one searchable metadata field. The set is closed: the
// ranking engine iterates Fields and looks weights up through Weight, so a
// new field means a new constant, a new weight, and a new case, all
// checked at compile time.
type Field string

const (
	FieldQuoteText     Field = "quote_text"
	FieldQuoteKeywords Field = "quote_keywords"
	FieldBookKeywords  Field = "book_keywords"
	FieldThemes        Field = "themes"
	FieldSummary       Field = "summary"
	FieldTitle         Field = "book_title"
	FieldAuthors       Field = "book_authors"
	FieldType          Field = "type"
	FieldPublisher     Field = "publisher"
	FieldJournal       Field = "journal"
)

// Fields lists every searchable field in a stable order.
var Fields = []Field{
	FieldQuoteText,
	FieldQuoteKeywords,
	FieldBookKeywords,
	FieldThemes,
	FieldSummary,
	FieldTitle,
	FieldAuthors,
	FieldType,
	FieldPublisher,
	FieldJournal,
}

// FieldWeights maps each searchable field to a non-negative weight added to
// a quote's score when the query text appears in that field.
type FieldWeights struct {
	QuoteText     float64 `json:"quote_text" yaml:"quote_text"`
	QuoteKeywords float64 `json:"quote_keywords" yaml:"quote_keywords"`
	BookKeywords  float64 `json:"book_keywords" yaml:"book_keywords"`
	Themes        float64 `json:"themes" yaml:"themes"`
	Summary       float64 `json:"summary" yaml:"summary"`
	Title         float64 `json:"book_title" yaml:"book_title"`
	Authors       float64 `json:"book_authors" yaml:"book_authors"`
	Type          float64 `json:"type" yaml:"type"`
	Publisher     float64 `json:"publisher" yaml:"publisher"`
	Journal       float64 `json:"journal" yaml:"journal"`
}

// Weight returns the configured weight for f, or 0 for an unknown field.
func (w FieldWeights) Weight(f Field) float64 {
	switch f {
	case FieldQuoteText:
		return w.QuoteText
	case FieldQuoteKeywords:
		return w.QuoteKeywords
	case FieldBookKeywords:
		return w.BookKeywords
	case FieldThemes:
		return w.Themes
	case FieldSummary:
		return w.Summary
	case FieldTitle:
		return w.Title
	case FieldAuthors:
		return w.Authors
	case FieldType:
		return w.Type
	case FieldPublisher:
		return w.Publisher
	case FieldJournal:
		return w.Journal
	default:
		return 0
	}
}
