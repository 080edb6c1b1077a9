package models

import (
	"fmt"
	"strings"
)

// BasicCitation builds a fallback citation when a book carries no stored
// ISO-690 citation.
func BasicCitation(b Book, page int) string {
	var parts []string
	if b.Authors != "" {
		parts = append(parts, b.Authors)
	}
	if b.Title != "" {
		parts = append(parts, fmt.Sprintf("%q", b.Title))
	}
	if b.Journal != "" {
		parts = append(parts, b.Journal)
	} else if b.Publisher != "" {
		parts = append(parts, b.Publisher)
	}
	if b.Year != 0 {
		parts = append(parts, fmt.Sprintf("%d", b.Year))
	}
	if page != 0 {
		parts = append(parts, fmt.Sprintf("p. %d", page))
	}
	if len(parts) == 0 {
		return "Citation unavailable"
	}
	return strings.Join(parts, ". ") + "."
}
