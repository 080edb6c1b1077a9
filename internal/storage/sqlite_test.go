package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/guildfordia/the-library/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStorage_BookCRUD(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	book := &models.Book{
		ID:        "b1",
		Title:     "The Human Condition",
		Authors:   "Hannah Arendt",
		Year:      1958,
		Publisher: "University of Chicago Press",
		Themes:    "action, labor, work",
	}
	if err := store.CreateBook(ctx, book); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetBook(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != book.Title || got.Year != 1958 {
		t.Errorf("got %+v", got)
	}

	list, err := store.ListBooks(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 book, got %d", len(list))
	}

	if _, err := store.GetBook(ctx, "missing"); err == nil {
		t.Error("expected error for missing book")
	}

	n, err := store.CountBooks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestSQLiteStorage_NullableColumns(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	// Placeholder books carry a title and nothing else.
	if err := store.CreateBook(ctx, &models.Book{ID: "b1", Title: "Bare"}); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetBook(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Authors != "" || got.Year != 0 || got.Publisher != "" {
		t.Errorf("zero fields expected, got %+v", got)
	}
}

func TestSQLiteStorage_Quotes(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	book := &models.Book{ID: "b1", Title: "Gravity and Grace", Authors: "Simone Weil", Year: 1947, Publisher: "Plon"}
	if err := store.CreateBook(ctx, book); err != nil {
		t.Fatal(err)
	}

	quotes := []*models.Quote{
		{ID: "q1", BookID: "b1", Text: "Attention is generosity.", Page: 12, Keywords: "attention"},
		{ID: "q2", BookID: "b1", Text: "Grace fills empty spaces.", Page: 45},
	}
	if err := store.BatchCreateQuotes(ctx, quotes); err != nil {
		t.Fatal(err)
	}

	n, err := store.CountQuotes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}

	list, err := store.ListQuotes(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "q1" {
		t.Errorf("list = %+v", list)
	}

	if err := store.CreateQuote(ctx, &models.Quote{ID: "q3", BookID: "b1", Text: "Third."}); err != nil {
		t.Fatal(err)
	}
}

func TestSQLiteStorage_GetQuoteCitation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	withISO := &models.Book{ID: "b1", Title: "A", ISO690: "DOE, J. A. Press, 2000."}
	bare := &models.Book{ID: "b2", Title: "B", Authors: "Roe R.", Publisher: "Other Press", Year: 1999}
	for _, b := range []*models.Book{withISO, bare} {
		if err := store.CreateBook(ctx, b); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.CreateQuote(ctx, &models.Quote{ID: "q1", BookID: "b1", Text: "X"}); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateQuote(ctx, &models.Quote{ID: "q2", BookID: "b2", Text: "Y", Page: 7}); err != nil {
		t.Fatal(err)
	}

	d, err := store.GetQuote(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if d.Citation != withISO.ISO690 {
		t.Errorf("citation = %q, want stored ISO-690", d.Citation)
	}

	d, err = store.GetQuote(ctx, "q2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(d.Citation, "Roe R.") || !strings.Contains(d.Citation, "p. 7") {
		t.Errorf("fallback citation = %q", d.Citation)
	}

	if _, err := store.GetQuote(ctx, "missing"); err == nil {
		t.Error("expected error for missing quote")
	}
}

func TestSQLiteStorage_BooksWithCounts(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	for _, b := range []*models.Book{
		{ID: "b1", Title: "One"},
		{ID: "b2", Title: "Two"},
		{ID: "b3", Title: "Three"},
	} {
		if err := store.CreateBook(ctx, b); err != nil {
			t.Fatal(err)
		}
	}
	quotes := []*models.Quote{
		{ID: "q1", BookID: "b1", Text: "a"},
		{ID: "q2", BookID: "b1", Text: "b"},
		{ID: "q3", BookID: "b2", Text: "c"},
	}
	if err := store.BatchCreateQuotes(ctx, quotes); err != nil {
		t.Fatal(err)
	}

	infos, err := store.Books(ctx, []string{"b1", "b2", "absent"})
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d infos, want 2 (absent id ignored)", len(infos))
	}
	if infos["b1"].TotalQuotes != 2 {
		t.Errorf("b1 total = %d, want 2", infos["b1"].TotalQuotes)
	}
	if infos["b2"].TotalQuotes != 1 {
		t.Errorf("b2 total = %d, want 1", infos["b2"].TotalQuotes)
	}

	empty, err := store.Books(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("empty id list should return empty map")
	}
}
