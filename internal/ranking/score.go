package ranking

import (
	"math"
	"regexp"
	"strings"

	"github.com/guildfordia/the-library/internal/models"
	"github.com/guildfordia/the-library/internal/scoring"
)

// normalizeBase maps an index-native relevance statistic to a non-negative
// magnitude. SQLite FTS5 reports bm25 as a negative rank (more negative is
// more relevant) while bleve reports a positive score, so the absolute
// value puts both backends on the same higher-is-better scale.
func normalizeBase(raw float64) float64 {
	return math.Abs(raw)
}

// phraseMatcher checks for a case-insensitive, word-bounded occurrence of
// an exact phrase inside quote text.
type phraseMatcher struct {
	re *regexp.Regexp
}

func newPhraseMatcher(phrase string) phraseMatcher {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return phraseMatcher{}
	}
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`)
	if err != nil {
		return phraseMatcher{}
	}
	return phraseMatcher{re: re}
}

func (m phraseMatcher) matches(text string) bool {
	return m.re != nil && m.re.MatchString(text)
}

// fieldValue returns the lowercased content of one searchable field for the
// given quote and its book.
func fieldValue(f scoring.Field, q models.Quote, b models.Book) string {
	var v string
	switch f {
	case scoring.FieldQuoteText:
		v = q.Text
	case scoring.FieldQuoteKeywords:
		v = q.Keywords
	case scoring.FieldBookKeywords:
		v = b.Keywords
	case scoring.FieldThemes:
		v = b.Themes
	case scoring.FieldSummary:
		v = b.Summary
	case scoring.FieldTitle:
		v = b.Title
	case scoring.FieldAuthors:
		v = b.Authors
	case scoring.FieldType:
		v = b.Type()
	case scoring.FieldPublisher:
		v = b.Publisher
	case scoring.FieldJournal:
		v = b.Journal
	}
	return strings.ToLower(v)
}

// fieldScores sums the weight of every searchable field whose content
// contains queryText (already lowercased). The per-field contributions are
// returned for the score breakdown; fields with weight 0 never contribute
// and never appear in the map.
func fieldScores(queryText string, q models.Quote, b models.Book, weights scoring.FieldWeights) (float64, map[string]float64) {
	total := 0.0
	matches := make(map[string]float64)
	if queryText == "" {
		return 0, matches
	}
	for _, f := range scoring.Fields {
		w := weights.Weight(f)
		if w == 0 {
			continue
		}
		if strings.Contains(fieldValue(f, q, b), queryText) {
			total += w
			matches[string(f)] = w
		}
	}
	return total, matches
}
