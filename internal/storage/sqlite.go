// Package storage provides the SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/guildfordia/the-library/internal/models"
)

// SQLiteStorage implements Storage using SQLite. The same database carries
// the FTS5 index virtual table; DB exposes the handle for it.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if they do not
// exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		authors TEXT,
		year INTEGER,
		publisher TEXT,
		journal TEXT,
		doi TEXT,
		isbn TEXT,
		themes TEXT,
		keywords TEXT,
		summary TEXT,
		iso690 TEXT,
		source_file TEXT
	);

	CREATE TABLE IF NOT EXISTS quotes (
		id TEXT PRIMARY KEY,
		book_id TEXT NOT NULL REFERENCES books(id),
		quote_text TEXT NOT NULL,
		page INTEGER,
		section TEXT,
		keywords TEXT,
		source_file TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_quotes_book_id ON quotes(book_id);
	CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);
	`
	_, err := db.Exec(schema)
	return err
}

// DB returns the underlying handle, shared with the FTS index backend.
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

// CreateBook inserts a book.
func (s *SQLiteStorage) CreateBook(ctx context.Context, book *models.Book) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO books (id, title, authors, year, publisher, journal, doi, isbn, themes, keywords, summary, iso690, source_file)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID, book.Title, book.Authors, book.Year, book.Publisher, book.Journal,
		book.DOI, book.ISBN, book.Themes, book.Keywords, book.Summary, book.ISO690, book.SourceFile,
	)
	return err
}

const bookColumns = `id, title, authors, year, publisher, journal, doi, isbn, themes, keywords, summary, iso690, source_file`

func scanBook(scan func(dest ...any) error) (*models.Book, error) {
	var (
		b                           models.Book
		year                        sql.NullInt64
		authors, publisher, journal sql.NullString
		doi, isbn, themes, keywords sql.NullString
		summary, iso690, sourceFile sql.NullString
	)
	if err := scan(&b.ID, &b.Title, &authors, &year, &publisher, &journal,
		&doi, &isbn, &themes, &keywords, &summary, &iso690, &sourceFile); err != nil {
		return nil, err
	}
	b.Authors = authors.String
	b.Year = int(year.Int64)
	b.Publisher = publisher.String
	b.Journal = journal.String
	b.DOI = doi.String
	b.ISBN = isbn.String
	b.Themes = themes.String
	b.Keywords = keywords.String
	b.Summary = summary.String
	b.ISO690 = iso690.String
	b.SourceFile = sourceFile.String
	return &b, nil
}

// GetBook returns a book by ID.
func (s *SQLiteStorage) GetBook(ctx context.Context, id string) (*models.Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	b, err := scanBook(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("book not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListBooks returns books ordered by title with offset and limit.
func (s *SQLiteStorage) ListBooks(ctx context.Context, offset, limit int) ([]*models.Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY title LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*models.Book
	for rows.Next() {
		b, err := scanBook(rows.Scan)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// Books returns metadata plus total quote counts for a set of book ids.
func (s *SQLiteStorage) Books(ctx context.Context, ids []string) (map[string]models.BookInfo, error) {
	result := make(map[string]models.BookInfo, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.title, b.authors, b.year, b.publisher, b.journal, b.doi, b.isbn,
		       b.themes, b.keywords, b.summary, b.iso690, b.source_file,
		       COUNT(q.id) AS total_quotes
		FROM books b
		LEFT JOIN quotes q ON q.book_id = b.id
		WHERE b.id IN (`+placeholders+`)
		GROUP BY b.id`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var total int
		b, err := scanBook(func(dest ...any) error {
			return rows.Scan(append(dest, &total)...)
		})
		if err != nil {
			return nil, err
		}
		result[b.ID] = models.BookInfo{Book: *b, TotalQuotes: total}
	}
	return result, rows.Err()
}

// CreateQuote inserts a single quote.
func (s *SQLiteStorage) CreateQuote(ctx context.Context, quote *models.Quote) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quotes (id, book_id, quote_text, page, section, keywords, source_file)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		quote.ID, quote.BookID, quote.Text, quote.Page, quote.Section, quote.Keywords, quote.SourceFile,
	)
	return err
}

// BatchCreateQuotes inserts quotes in a single transaction.
func (s *SQLiteStorage) BatchCreateQuotes(ctx context.Context, quotes []*models.Quote) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO quotes (id, book_id, quote_text, page, section, keywords, source_file)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, q := range quotes {
		if _, err := stmt.ExecContext(ctx, q.ID, q.BookID, q.Text, q.Page, q.Section, q.Keywords, q.SourceFile); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert quote %s: %w", q.ID, err)
		}
	}
	return tx.Commit()
}

// GetQuote returns a quote joined with its book. The citation falls back to
// a generated one when no stored ISO-690 citation exists.
func (s *SQLiteStorage) GetQuote(ctx context.Context, id string) (*models.QuoteDetail, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT q.id, q.book_id, q.quote_text, q.page, q.section, q.keywords, q.source_file,
		       b.id, b.title, b.authors, b.year, b.publisher, b.journal, b.doi, b.isbn,
		       b.themes, b.keywords, b.summary, b.iso690, b.source_file
		FROM quotes q
		JOIN books b ON b.id = q.book_id
		WHERE q.id = ?`, id)

	var (
		d         models.QuoteDetail
		page      sql.NullInt64
		section   sql.NullString
		qkw, qsrc sql.NullString
	)
	err := row.Scan(&d.ID, &d.BookID, &d.Text, &page, &section, &qkw, &qsrc,
		&d.Book.ID, &d.Book.Title, nullStr(&d.Book.Authors), nullInt(&d.Book.Year),
		nullStr(&d.Book.Publisher), nullStr(&d.Book.Journal), nullStr(&d.Book.DOI),
		nullStr(&d.Book.ISBN), nullStr(&d.Book.Themes), nullStr(&d.Book.Keywords),
		nullStr(&d.Book.Summary), nullStr(&d.Book.ISO690), nullStr(&d.Book.SourceFile))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("quote not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	d.Page = int(page.Int64)
	d.Section = section.String
	d.Keywords = qkw.String
	d.SourceFile = qsrc.String

	d.Citation = d.Book.ISO690
	if d.Citation == "" {
		d.Citation = models.BasicCitation(d.Book, d.Page)
	}
	return &d, nil
}

// ListQuotes returns quotes with offset and limit, in insertion order.
func (s *SQLiteStorage) ListQuotes(ctx context.Context, offset, limit int) ([]*models.Quote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, book_id, quote_text, page, section, keywords, source_file
		FROM quotes ORDER BY rowid LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []*models.Quote
	for rows.Next() {
		var (
			q       models.Quote
			page    sql.NullInt64
			section sql.NullString
			kw, src sql.NullString
		)
		if err := rows.Scan(&q.ID, &q.BookID, &q.Text, &page, &section, &kw, &src); err != nil {
			return nil, err
		}
		q.Page = int(page.Int64)
		q.Section = section.String
		q.Keywords = kw.String
		q.SourceFile = src.String
		quotes = append(quotes, &q)
	}
	return quotes, rows.Err()
}

// CountBooks returns the number of books.
func (s *SQLiteStorage) CountBooks(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n)
	return n, err
}

// CountQuotes returns the number of quotes.
func (s *SQLiteStorage) CountQuotes(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quotes`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// nullStr and nullInt adapt nullable columns onto plain struct fields.
type nullStrScanner struct{ dst *string }

func (n nullStrScanner) Scan(v any) error {
	var ns sql.NullString
	if err := ns.Scan(v); err != nil {
		return err
	}
	*n.dst = ns.String
	return nil
}

func nullStr(dst *string) sql.Scanner { return nullStrScanner{dst} }

type nullIntScanner struct{ dst *int }

func (n nullIntScanner) Scan(v any) error {
	var ni sql.NullInt64
	if err := ni.Scan(v); err != nil {
		return err
	}
	*n.dst = int(ni.Int64)
	return nil
}

func nullInt(dst *int) sql.Scanner { return nullIntScanner{dst} }
