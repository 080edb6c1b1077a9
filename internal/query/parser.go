// Package query parses free-text search input into full-text index expressions.
package query

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxQueryLength is the longest query text Validate accepts.
const MaxQueryLength = 1000

// ParsedQuery is the structured form of a search query. Expression is the
// boolean expression handed to the full-text index; ExactPhrase is the first
// quoted substring, used downstream as a scoring bonus only, never as a
// filter. An empty Expression means the text contained no searchable terms.
type ParsedQuery struct {
	Expression  string
	ExactPhrase string
	Original    string
}

var (
	quotedPhraseRe = regexp.MustCompile(`"([^"]+)"`)
	operatorRe     = regexp.MustCompile(`(?i)\b(AND|OR|NOT)\b`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	invalidCharRe  = regexp.MustCompile(`[^A-Za-z0-9_\s'"*()-]`)
)

// Parser converts user queries into index-compatible boolean expressions.
type Parser struct{}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse builds a ParsedQuery from raw query text. Quoted phrases are
// extracted (first one wins, case preserved) and their quote characters are
// dropped from the expression so the phrase words participate as ordinary
// terms. Boolean operators are normalized to uppercase. When the text has
// no explicit operator, terms are joined with OR: a quote matching any term
// stays eligible and the index relevance statistic ranks quotes matching
// more terms higher. Trailing * on a term passes through for prefix search.
func (p *Parser) Parse(text string) ParsedQuery {
	original := strings.TrimSpace(text)
	if original == "" {
		return ParsedQuery{Original: original}
	}

	parsed := ParsedQuery{Original: original}
	if m := quotedPhraseRe.FindStringSubmatch(original); m != nil {
		parsed.ExactPhrase = m[1]
	}
	parsed.Expression = p.toExpression(original)
	return parsed
}

// toExpression normalizes text into a boolean expression, or "" when
// nothing searchable remains.
func (p *Parser) toExpression(text string) string {
	// Quote characters would turn OR-joined terms back into phrase syntax.
	expr := strings.ReplaceAll(text, `"`, " ")
	expr = strings.TrimSpace(whitespaceRe.ReplaceAllString(expr, " "))
	if expr == "" {
		return ""
	}

	if !operatorRe.MatchString(expr) {
		terms := strings.Fields(expr)
		if len(terms) > 1 {
			expr = strings.Join(terms, " OR ")
		}
	}

	expr = operatorRe.ReplaceAllStringFunc(expr, strings.ToUpper)

	switch expr {
	case "", "AND", "OR", "NOT":
		return ""
	}
	return expr
}

// Validate reports whether query text is safe to hand to the index query
// language: non-empty, at most MaxQueryLength characters, balanced double
// quotes, and no characters outside the allowed set. The underlying index
// driver still binds the expression as a parameter; this guard keeps the
// expression syntactically sane, it is not a security boundary.
func (p *Parser) Validate(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if utf8.RuneCountInString(text) > MaxQueryLength {
		return false
	}
	if strings.Count(text, `"`)%2 != 0 {
		return false
	}
	return !invalidCharRe.MatchString(text)
}
