package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/guildfordia/the-library/internal/models"
)

// readBibliography parses a bibliography table, dispatching on the file
// extension.
func readBibliography(path string) ([]models.Book, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readBibliographyCSV(path)
	case ".xlsx":
		return readBibliographyXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported bibliography format %q", filepath.Ext(path))
	}
}

func readBibliographyCSV(path string) ([]models.Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bibliography: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse bibliography CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("bibliography %s has no data rows", path)
	}
	return rowsToBooks(records[0], records[1:]), nil
}

func readBibliographyXLSX(path string) ([]models.Book, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bibliography: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("bibliography %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("bibliography %s has no data rows", path)
	}
	return rowsToBooks(rows[0], rows[1:]), nil
}

// rowsToBooks converts header plus data rows into books. Bibliography
// exports carry several generations of column names, so each field reads
// the first non-empty value among its known aliases. Rows without a title
// are dropped.
func rowsToBooks(header []string, rows [][]string) []models.Book {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	pick := func(row []string, names ...string) string {
		for _, name := range names {
			if i, ok := cols[name]; ok && i < len(row) {
				if v := strings.TrimSpace(row[i]); v != "" {
					return v
				}
			}
		}
		return ""
	}

	var books []models.Book
	for _, row := range rows {
		b := models.Book{
			Title:      pick(row, "final_verified_title", "title"),
			Authors:    pick(row, "final_verified_authors", "author_final", "authors"),
			Year:       parseYear(pick(row, "year")),
			Publisher:  pick(row, "final_verified_publisher", "publisher"),
			Journal:    pick(row, "journal"),
			DOI:        pick(row, "doi"),
			ISBN:       pick(row, "isbn_13", "isbn"),
			Themes:     pick(row, "theme", "themes"),
			Keywords:   pick(row, "keywords"),
			Summary:    pick(row, "summary"),
			ISO690:     pick(row, "biblio_iso690_finale", "biblio_fr_iso690", "iso690"),
			SourceFile: pick(row, "file_path", "source_file"),
		}
		if b.Title == "" {
			continue
		}
		books = append(books, b)
	}
	return books
}

// parseYear accepts plain integers and spreadsheet floats like "1984.0".
func parseYear(s string) int {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(f)
}
