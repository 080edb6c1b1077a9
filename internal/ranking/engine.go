// Package ranking executes searches against the full-text index and turns
// raw hits into scored, book-grouped, paginated results.
package ranking

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/guildfordia/the-library/internal/config"
	"github.com/guildfordia/the-library/internal/index"
	"github.com/guildfordia/the-library/internal/models"
	"github.com/guildfordia/the-library/internal/scoring"
)

// BookSource supplies book metadata and total quote counts for grouping
// and field-weight matching.
type BookSource interface {
	Books(ctx context.Context, ids []string) (map[string]models.BookInfo, error)
}

// Engine runs scored quote search. It is stateless per call: the scoring
// configuration is passed into every search by the caller, each call owns
// its own buffers, and concurrent searches are safe as long as the index
// supports concurrent readers.
//
// The candidate fetch is bounded by the configured fetch limit (1000 by
// default); hits beyond it never reach scoring or grouping. That ceiling
// bounds grouping cost and is a known limitation, not a correctness
// guarantee.
type Engine struct {
	index      index.Index
	books      BookSource
	fetchLimit int
	topQuotes  int
	logger     *zap.Logger
}

// NewEngine creates an engine with the given collaborators.
func NewEngine(idx index.Index, books BookSource, cfg *config.SearchConfig, logger *zap.Logger) *Engine {
	fetchLimit := cfg.FetchLimit
	if fetchLimit <= 0 {
		fetchLimit = 1000
	}
	topQuotes := cfg.TopQuotes
	if topQuotes <= 0 {
		topQuotes = 5
	}
	return &Engine{
		index:      idx,
		books:      books,
		fetchLimit: fetchLimit,
		topQuotes:  topQuotes,
		logger:     logger,
	}
}

// Search runs the fast path: hits are scored from the normalized index
// statistic and the phrase bonus only, grouped by book, and paginated over
// groups. The returned total is the group count before pagination.
func (e *Engine) Search(ctx context.Context, expression, exactPhrase string, cfg scoring.Config, offset, limit int) ([]models.BookGroup, int, error) {
	if expression == "" {
		return []models.BookGroup{}, 0, nil
	}

	hits, err := e.index.Query(ctx, expression, e.fetchLimit)
	if err != nil {
		return nil, 0, fmt.Errorf("index unavailable: %w", err)
	}

	phrase := newPhraseMatcher(exactPhrase)
	scored := make([]models.ScoredQuote, len(hits))
	for i, h := range hits {
		base := normalizeBase(h.Raw)
		bonus := 0.0
		if phrase.matches(h.Quote.Text) {
			bonus = cfg.PhraseBonus
		}
		scored[i] = models.ScoredQuote{
			Quote: h.Quote,
			Score: base*cfg.BaseWeight + bonus,
		}
	}

	groups, err := e.group(ctx, scored)
	if err != nil {
		return nil, 0, err
	}
	total := len(groups)
	return paginateGroups(groups, offset, limit), total, nil
}

// SearchWithBreakdown runs the tuning path: in addition to the fast-path
// signals it fetches the book metadata fields up front, adds field-weight
// bonuses, and attaches a per-quote score decomposition to every retained
// top quote. Results are the first limit groups.
func (e *Engine) SearchWithBreakdown(ctx context.Context, expression, exactPhrase string, cfg scoring.Config, limit int) ([]models.BookGroup, int, error) {
	if expression == "" {
		return []models.BookGroup{}, 0, nil
	}

	hits, err := e.index.Query(ctx, expression, e.fetchLimit)
	if err != nil {
		return nil, 0, fmt.Errorf("index unavailable: %w", err)
	}

	infos, err := e.books.Books(ctx, bookIDs(hits))
	if err != nil {
		return nil, 0, fmt.Errorf("book metadata unavailable: %w", err)
	}

	// Field containment is checked against the expression's literal
	// lowercase text, so each match traces to exactly one weight.
	queryText := strings.ToLower(expression)
	phrase := newPhraseMatcher(exactPhrase)

	scored := make([]models.ScoredQuote, len(hits))
	for i, h := range hits {
		base := normalizeBase(h.Raw)
		bonus := 0.0
		if phrase.matches(h.Quote.Text) {
			bonus = cfg.PhraseBonus
		}

		info, ok := infos[h.Quote.BookID]
		if !ok {
			// Book row is gone; keep the hit, drop its breakdown detail.
			e.logger.Debug("no book metadata for hit",
				zap.String("quote_id", h.Quote.ID),
				zap.String("book_id", h.Quote.BookID))
			scored[i] = models.ScoredQuote{
				Quote: h.Quote,
				Score: base*cfg.BaseWeight + bonus,
			}
			continue
		}

		fieldScore, matches := fieldScores(queryText, h.Quote, info.Book, cfg.FieldWeights)
		final := base*cfg.BaseWeight + fieldScore + bonus
		scored[i] = models.ScoredQuote{
			Quote: h.Quote,
			Score: final,
			Breakdown: &models.ScoreBreakdown{
				QuoteID:        h.Quote.ID,
				BaseRaw:        h.Raw,
				BaseNormalized: base,
				FieldScore:     fieldScore,
				FieldMatches:   matches,
				PhraseBonus:    bonus,
				FinalScore:     final,
			},
		}
	}

	groups := e.assembleGroups(scored, infos)
	total := len(groups)
	return paginateGroups(groups, 0, limit), total, nil
}

// group sorts scored quotes, groups them by book, and fills in book
// metadata fetched from the book source.
func (e *Engine) group(ctx context.Context, scored []models.ScoredQuote) ([]models.BookGroup, error) {
	ids := make([]string, 0, len(scored))
	seen := make(map[string]bool)
	for _, sq := range scored {
		if !seen[sq.BookID] {
			seen[sq.BookID] = true
			ids = append(ids, sq.BookID)
		}
	}
	infos, err := e.books.Books(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("book metadata unavailable: %w", err)
	}
	return e.assembleGroups(scored, infos), nil
}

// assembleGroups builds book groups from scored quotes. Quotes are sorted
// by score descending first; the stable sort keeps the index's native
// order for equal scores, so no synthetic tie-break key is needed. Because
// the quotes are globally sorted, the first topQuotes encountered per book
// are that book's best.
func (e *Engine) assembleGroups(scored []models.ScoredQuote, infos map[string]models.BookInfo) []models.BookGroup {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	byBook := make(map[string]*models.BookGroup)
	var order []string
	for _, sq := range scored {
		g, ok := byBook[sq.BookID]
		if !ok {
			g = &models.BookGroup{}
			if info, found := infos[sq.BookID]; found {
				g.Book = info.Book
				g.TotalQuotes = info.TotalQuotes
			} else {
				g.Book = models.Book{ID: sq.BookID}
			}
			byBook[sq.BookID] = g
			order = append(order, sq.BookID)
		}
		g.HitsCount++
		if len(g.TopQuotes) < e.topQuotes {
			g.TopQuotes = append(g.TopQuotes, sq)
		}
	}

	groups := make([]models.BookGroup, 0, len(order))
	for _, id := range order {
		groups = append(groups, *byBook[id])
	}

	// First-encounter order already matches best-quote order; the sort is
	// defensive, with quote-less groups last.
	sort.SliceStable(groups, func(i, j int) bool {
		return representativeScore(groups[i]) > representativeScore(groups[j])
	})
	return groups
}

func representativeScore(g models.BookGroup) float64 {
	if len(g.TopQuotes) == 0 {
		return 0
	}
	return g.TopQuotes[0].Score
}

func bookIDs(hits []index.Hit) []string {
	seen := make(map[string]bool, len(hits))
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		if !seen[h.Quote.BookID] {
			seen[h.Quote.BookID] = true
			ids = append(ids, h.Quote.BookID)
		}
	}
	return ids
}

// paginateGroups applies offset/limit over book groups.
func paginateGroups(groups []models.BookGroup, offset, limit int) []models.BookGroup {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(groups) {
		return []models.BookGroup{}
	}
	end := len(groups)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return groups[offset:end]
}
