package index

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/guildfordia/the-library/internal/models"
)

// Bleve implements Index and Writer on a bleve index. Scores are positive,
// higher is better. The parser's flat boolean expressions are translated
// into bleve boolean queries; nesting beyond one level of parentheses is
// not interpreted (parentheses are stripped), which matches what the query
// parser can produce.
type Bleve struct {
	path  string
	index bleve.Index
}

func bleveMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	// Standard analyzer: lowercase + tokenize, no stemming, so prefix terms
	// behave predictably.
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	for _, field := range []string{"quote_text", "quote_keywords", "title", "authors", "book_keywords", "themes", "summary"} {
		doc.AddFieldMappingsAt(field, text)
	}

	keyword := bleve.NewKeywordFieldMapping()
	keyword.Index = false
	doc.AddFieldMappingsAt("book_id", keyword)
	doc.AddFieldMappingsAt("section", keyword)
	doc.AddFieldMappingsAt("source_file", keyword)

	page := bleve.NewNumericFieldMapping()
	page.Index = false
	doc.AddFieldMappingsAt("page", page)

	im.DefaultMapping = doc
	return im
}

// NewBleve opens the index at path, creating it if absent.
func NewBleve(path string) (*Bleve, error) {
	if _, err := os.Stat(path); err == nil {
		idx, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open bleve index: %w", openErr)
		}
		return &Bleve{path: path, index: idx}, nil
	}
	idx, err := bleve.New(path, bleveMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	return &Bleve{path: path, index: idx}, nil
}

// Query translates the boolean expression and returns up to limit hits in
// bleve's native score order.
func (b *Bleve) Query(ctx context.Context, expression string, limit int) ([]Hit, error) {
	req := bleve.NewSearchRequest(translateExpression(expression))
	req.Size = limit
	req.Fields = []string{"*"}

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("index query failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		q := models.Quote{ID: h.ID, Text: fieldString(h.Fields, "quote_text")}
		q.BookID = fieldString(h.Fields, "book_id")
		q.Keywords = fieldString(h.Fields, "quote_keywords")
		q.Section = fieldString(h.Fields, "section")
		q.SourceFile = fieldString(h.Fields, "source_file")
		if pg, ok := h.Fields["page"].(float64); ok {
			q.Page = int(pg)
		}
		hits = append(hits, Hit{Quote: q, Raw: h.Score})
	}
	return hits, nil
}

func fieldString(fields map[string]interface{}, name string) string {
	s, _ := fields[name].(string)
	return s
}

// translateExpression maps the parser's flat AND/OR/NOT expression onto a
// bleve boolean query. Plain terms are shoulds, AND promotes operands to
// musts, NOT negates the following term, and a trailing * becomes a prefix
// query.
func translateExpression(expression string) blevequery.Query {
	var must, should, mustNot []blevequery.Query

	op := "OR"
	for _, tok := range strings.Fields(expression) {
		switch tok {
		case "AND", "OR", "NOT":
			op = tok
			continue
		}
		tok = strings.Trim(tok, "()")
		if tok == "" {
			continue
		}
		q := termQuery(tok)
		switch op {
		case "NOT":
			mustNot = append(mustNot, q)
		case "AND":
			// "a AND b" requires both sides.
			if len(must) == 0 && len(should) > 0 {
				must = append(must, should[len(should)-1])
				should = should[:len(should)-1]
			}
			must = append(must, q)
		default:
			should = append(should, q)
		}
		op = "OR"
	}

	boolean := bleve.NewBooleanQuery()
	if len(must) > 0 {
		boolean.AddMust(must...)
	}
	if len(should) > 0 {
		boolean.AddShould(should...)
		if len(must) == 0 {
			boolean.SetMinShould(1)
		}
	}
	if len(mustNot) > 0 {
		boolean.AddMustNot(mustNot...)
	}
	return boolean
}

func termQuery(term string) blevequery.Query {
	if strings.HasSuffix(term, "*") {
		// Prefix terms bypass analysis; lowercase to match the analyzer.
		return bleve.NewPrefixQuery(strings.ToLower(strings.TrimSuffix(term, "*")))
	}
	return bleve.NewMatchQuery(term)
}

// Add indexes one quote with its book's searchable metadata.
func (b *Bleve) Add(ctx context.Context, quote models.Quote, book models.Book) error {
	doc := map[string]interface{}{
		"quote_text":     quote.Text,
		"quote_keywords": quote.Keywords,
		"title":          book.Title,
		"authors":        book.Authors,
		"book_keywords":  book.Keywords,
		"themes":         book.Themes,
		"summary":        book.Summary,
		"book_id":        book.ID,
		"section":        quote.Section,
		"source_file":    quote.SourceFile,
		"page":           float64(quote.Page),
	}
	if err := b.index.Index(quote.ID, doc); err != nil {
		return fmt.Errorf("failed to index quote %s: %w", quote.ID, err)
	}
	return nil
}

// Reset recreates the index from scratch.
func (b *Bleve) Reset(ctx context.Context) error {
	if err := b.index.Close(); err != nil {
		return fmt.Errorf("failed to close bleve index: %w", err)
	}
	if err := os.RemoveAll(b.path); err != nil {
		return fmt.Errorf("failed to remove bleve index: %w", err)
	}
	idx, err := bleve.New(b.path, bleveMapping())
	if err != nil {
		return fmt.Errorf("failed to recreate bleve index: %w", err)
	}
	b.index = idx
	return nil
}

// Close closes the underlying index.
func (b *Bleve) Close() error {
	return b.index.Close()
}
