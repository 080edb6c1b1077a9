// Package index defines the full-text index collaborator and its backends.
//
// The ranking engine only needs boolean/prefix matching and a per-hit
// relevance statistic; it does not build or maintain the index. Two
// backends are provided: SQLite FTS5 (the default, sharing the library
// database) and bleve. Both index denormalized book metadata next to the
// quote columns so a term appearing only in, say, a book's title still
// produces that book's quotes as candidates.
package index

import (
	"context"

	"github.com/guildfordia/the-library/internal/models"
)

// Hit is one matching quote with the backend's raw relevance statistic.
// Sign conventions differ per backend: SQLite FTS5 bm25 ranks are negative
// (more negative is more relevant), bleve scores are positive (higher is
// more relevant). The ranking engine normalizes with the absolute value,
// which handles both uniformly.
type Hit struct {
	Quote models.Quote
	Raw   float64
}

// Index answers boolean full-text queries. Implementations must be safe
// for concurrent readers.
type Index interface {
	// Query runs the boolean expression and returns up to limit hits in
	// the backend's native relevance order.
	Query(ctx context.Context, expression string, limit int) ([]Hit, error)
	Close() error
}

// Writer is the ingestion-side surface of a backend: Reset drops all
// entries, Add indexes one quote with its book's searchable metadata.
type Writer interface {
	Add(ctx context.Context, quote models.Quote, book models.Book) error
	Reset(ctx context.Context) error
}
