package index

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/guildfordia/the-library/internal/models"
)

// FTS implements Index and Writer on a SQLite FTS5 virtual table. It shares
// the library database handle; Close is a no-op because the storage layer
// owns the connection.
//
// FTS5's bm25-derived rank is negative with more negative meaning more
// relevant, so `ORDER BY rank` ascending already yields best-first order.
type FTS struct {
	db *sql.DB
}

// NewFTS creates the virtual table if it does not exist.
func NewFTS(db *sql.DB) (*FTS, error) {
	schema := `
	CREATE VIRTUAL TABLE IF NOT EXISTS quotes_fts USING fts5(
		quote_text,
		quote_keywords,
		title,
		authors,
		book_keywords,
		themes,
		summary,
		quote_id UNINDEXED,
		book_id UNINDEXED
	)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create FTS table: %w", err)
	}
	return &FTS{db: db}, nil
}

// Query runs expression against the FTS table, joining the quotes table for
// the quote row, bounded to limit hits in native rank order.
func (f *FTS) Query(ctx context.Context, expression string, limit int) ([]Hit, error) {
	rows, err := f.db.QueryContext(ctx, `
		SELECT q.id, q.book_id, q.quote_text, q.page, q.section, q.keywords, q.source_file, fts.rank
		FROM quotes_fts fts
		JOIN quotes q ON q.id = fts.quote_id
		WHERE quotes_fts MATCH ?
		ORDER BY fts.rank
		LIMIT ?`,
		expression, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("index query failed: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			h       Hit
			page    sql.NullInt64
			section sql.NullString
			kw      sql.NullString
			src     sql.NullString
		)
		if err := rows.Scan(&h.Quote.ID, &h.Quote.BookID, &h.Quote.Text, &page, &section, &kw, &src, &h.Raw); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		h.Quote.Page = int(page.Int64)
		h.Quote.Section = section.String
		h.Quote.Keywords = kw.String
		h.Quote.SourceFile = src.String
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Add indexes one quote together with its book's searchable metadata.
func (f *FTS) Add(ctx context.Context, quote models.Quote, book models.Book) error {
	_, err := f.db.ExecContext(ctx, `
		INSERT INTO quotes_fts (quote_text, quote_keywords, title, authors, book_keywords, themes, summary, quote_id, book_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		quote.Text, quote.Keywords, book.Title, book.Authors, book.Keywords, book.Themes, book.Summary, quote.ID, book.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to index quote %s: %w", quote.ID, err)
	}
	return nil
}

// Reset drops all index entries. Required when book metadata changes, since
// the metadata columns are denormalized per quote.
func (f *FTS) Reset(ctx context.Context) error {
	if _, err := f.db.ExecContext(ctx, `DELETE FROM quotes_fts`); err != nil {
		return fmt.Errorf("failed to reset FTS index: %w", err)
	}
	return nil
}

// Close is a no-op; the storage layer owns the database handle.
func (f *FTS) Close() error {
	return nil
}
