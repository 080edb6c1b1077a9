// Package ingest loads bibliography files and highlight extracts into
// storage and the full-text index.
//
// A bibliography is a CSV or XLSX table with one row per book. Highlight
// extracts are JSON files named "<stem>_highlights.json", each holding the
// quotes pulled from one source document. Extracts are linked to books by
// file stem, falling back to title containment; unmatched extracts get a
// placeholder book so no quote is dropped.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/guildfordia/the-library/internal/index"
	"github.com/guildfordia/the-library/internal/models"
	"github.com/guildfordia/the-library/internal/storage"
)

// Stats summarizes one import run.
type Stats struct {
	Books        int `json:"books"`
	Quotes       int `json:"quotes"`
	Placeholders int `json:"placeholders"`
	SkippedFiles int `json:"skipped_files"`
}

// Importer writes bibliography rows and highlight extracts through to
// storage and the search index.
type Importer struct {
	storage storage.Storage
	writer  index.Writer
	logger  *zap.Logger
}

// NewImporter creates an importer over the given storage and index writer.
func NewImporter(st storage.Storage, w index.Writer, logger *zap.Logger) *Importer {
	return &Importer{storage: st, writer: w, logger: logger}
}

// Run imports the bibliography at biblioPath (CSV or XLSX, optional) and
// every "*_highlights.json" file under extractsDir, rebuilding the index
// from scratch. A malformed extract file is logged and skipped; the run
// continues.
func (im *Importer) Run(ctx context.Context, biblioPath, extractsDir string) (*Stats, error) {
	if err := im.writer.Reset(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset index: %w", err)
	}

	stats := &Stats{}

	// bookKeys maps a file stem or title to its book, for linking extracts.
	bookKeys := make(map[string]models.Book)

	if biblioPath != "" {
		books, err := readBibliography(biblioPath)
		if err != nil {
			return nil, err
		}
		for _, b := range books {
			b.ID = uuid.NewString()
			if err := im.storage.CreateBook(ctx, &b); err != nil {
				return nil, fmt.Errorf("failed to store book %q: %w", b.Title, err)
			}
			stats.Books++
			if b.SourceFile != "" {
				bookKeys[fileStem(b.SourceFile)] = b
			}
			if b.Title != "" {
				bookKeys[strings.TrimSpace(b.Title)] = b
			}
		}
		im.logger.Info("bibliography loaded",
			zap.String("path", biblioPath),
			zap.Int("books", stats.Books))
	}

	if extractsDir != "" {
		if err := im.loadExtracts(ctx, extractsDir, bookKeys, stats); err != nil {
			return nil, err
		}
	}

	im.logger.Info("import complete",
		zap.Int("books", stats.Books),
		zap.Int("quotes", stats.Quotes),
		zap.Int("placeholders", stats.Placeholders),
		zap.Int("skipped_files", stats.SkippedFiles))
	return stats, nil
}

func (im *Importer) loadExtracts(ctx context.Context, dir string, bookKeys map[string]models.Book, stats *Stats) error {
	files, err := filepath.Glob(filepath.Join(dir, "*_highlights.json"))
	if err != nil {
		return fmt.Errorf("failed to scan extracts dir: %w", err)
	}

	for _, path := range files {
		hf, err := readHighlightFile(path)
		if err != nil {
			im.logger.Warn("skipping extract file",
				zap.String("path", path), zap.Error(err))
			stats.SkippedFiles++
			continue
		}

		stem := extractStem(filepath.Base(path))
		book, found := matchBook(stem, bookKeys)
		if !found {
			book = placeholderBook(stem, hf.File, path)
			if err := im.storage.CreateBook(ctx, &book); err != nil {
				return fmt.Errorf("failed to store placeholder book %q: %w", book.Title, err)
			}
			stats.Books++
			stats.Placeholders++
			bookKeys[stem] = book
		}

		quotes := make([]*models.Quote, 0, len(hf.Highlights))
		for _, h := range hf.Highlights {
			text := strings.TrimSpace(h.Text)
			if text == "" {
				continue
			}
			quotes = append(quotes, &models.Quote{
				ID:         uuid.NewString(),
				BookID:     book.ID,
				Text:       text,
				Page:       h.Page,
				Keywords:   h.Keywords,
				SourceFile: path,
			})
		}
		if len(quotes) == 0 {
			continue
		}
		if err := im.storage.BatchCreateQuotes(ctx, quotes); err != nil {
			return fmt.Errorf("failed to store quotes from %s: %w", path, err)
		}
		for _, q := range quotes {
			if err := im.writer.Add(ctx, *q, book); err != nil {
				return fmt.Errorf("failed to index quote %s: %w", q.ID, err)
			}
		}
		stats.Quotes += len(quotes)
	}
	return nil
}

// matchBook resolves an extract file stem to a book: exact stem match
// first, then case-insensitive containment against known stems and titles.
func matchBook(stem string, bookKeys map[string]models.Book) (models.Book, bool) {
	if b, ok := bookKeys[stem]; ok {
		return b, true
	}
	lower := strings.ToLower(stem)
	for key, b := range bookKeys {
		k := strings.ToLower(key)
		if strings.Contains(k, lower) || strings.Contains(lower, k) {
			return b, true
		}
	}
	return models.Book{}, false
}

func placeholderBook(stem, sourcePath, extractPath string) models.Book {
	title := stem
	if sourcePath != "" {
		title = fileStem(sourcePath)
	}
	return models.Book{
		ID:         uuid.NewString(),
		Title:      title,
		SourceFile: extractPath,
	}
}

// extractStem strips the "_highlights.json" suffix from an extract
// filename.
func extractStem(name string) string {
	name = strings.TrimSuffix(name, ".json")
	return strings.TrimSuffix(name, "_highlights")
}

// fileStem returns the base name of a path without its extension.
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
