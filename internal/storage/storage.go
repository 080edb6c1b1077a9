// Package storage defines the persistence interface for books and quotes.
package storage

import (
	"context"

	"github.com/guildfordia/the-library/internal/models"
)

// Storage defines book and quote persistence operations.
type Storage interface {
	// Book operations
	CreateBook(ctx context.Context, book *models.Book) error
	GetBook(ctx context.Context, id string) (*models.Book, error)
	ListBooks(ctx context.Context, offset, limit int) ([]*models.Book, error)

	// Books returns metadata plus total quote counts for a set of book ids.
	// This is the ranking engine's book source.
	Books(ctx context.Context, ids []string) (map[string]models.BookInfo, error)

	// Quote operations
	CreateQuote(ctx context.Context, quote *models.Quote) error
	BatchCreateQuotes(ctx context.Context, quotes []*models.Quote) error
	GetQuote(ctx context.Context, id string) (*models.QuoteDetail, error)
	ListQuotes(ctx context.Context, offset, limit int) ([]*models.Quote, error)

	// Stats
	CountBooks(ctx context.Context) (int64, error)
	CountQuotes(ctx context.Context) (int64, error)

	Close() error
}
