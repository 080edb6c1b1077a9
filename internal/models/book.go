// Package models defines core data structures for books, quotes, and search results.
package models

// Book represents one bibliography entry. Journal articles carry a Journal
// (container) value; monographs carry a Publisher.
type Book struct {
	ID         string `json:"id" db:"id"`
	Title      string `json:"title" db:"title"`
	Authors    string `json:"authors,omitempty" db:"authors"`
	Year       int    `json:"year,omitempty" db:"year"`
	Publisher  string `json:"publisher,omitempty" db:"publisher"`
	Journal    string `json:"journal,omitempty" db:"journal"`
	DOI        string `json:"doi,omitempty" db:"doi"`
	ISBN       string `json:"isbn,omitempty" db:"isbn"`
	Themes     string `json:"themes,omitempty" db:"themes"`
	Keywords   string `json:"keywords,omitempty" db:"keywords"`
	Summary    string `json:"summary,omitempty" db:"summary"`
	ISO690     string `json:"iso690,omitempty" db:"iso690"`
	SourceFile string `json:"source_file,omitempty" db:"source_file"`
}

// Type classifies the entry: "journal" when a container/journal is present,
// "book" when only a publisher is, "unknown" otherwise.
func (b *Book) Type() string {
	switch {
	case b.Journal != "":
		return "journal"
	case b.Publisher != "":
		return "book"
	default:
		return "unknown"
	}
}

// BookInfo is a book together with its total quote count, as returned by
// the book source collaborator during result grouping.
type BookInfo struct {
	Book
	TotalQuotes int `json:"total_quotes"`
}
