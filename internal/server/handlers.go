package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/guildfordia/the-library/internal/models"
	"github.com/guildfordia/the-library/internal/scoring"
	"github.com/guildfordia/the-library/internal/tuning"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	if !s.parser.Validate(q) {
		s.respondError(w, http.StatusBadRequest, "invalid query format")
		return
	}
	parsed := s.parser.Parse(q)
	if parsed.Expression == "" {
		s.respondError(w, http.StatusBadRequest, "query could not be parsed")
		return
	}

	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	limit := queryInt(r, "limit", s.config.Search.DefaultLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > s.config.Search.MaxLimit {
		limit = s.config.Search.MaxLimit
	}

	s.logger.Debug("search request",
		zap.String("query", q), zap.Int("offset", offset), zap.Int("limit", limit))

	groups, total, err := s.engine.Search(r.Context(), parsed.Expression, parsed.ExactPhrase, s.tuning.Current(), offset, limit)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, models.SearchResponse{
		Results: groups,
		Total:   total,
		Offset:  offset,
		Limit:   limit,
		Query:   parsed.Original,
	})
}

func (s *Server) handleSearchDebug(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	parsed := s.parser.Parse(q)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"original_query": parsed.Original,
		"expression":     parsed.Expression,
		"exact_phrase":   parsed.ExactPhrase,
		"is_valid":       s.parser.Validate(q),
	})
}

type tuningSearchRequest struct {
	Query  string         `json:"query"`
	Config scoring.Config `json:"config"`
	Limit  int            `json:"limit"`
}

func (s *Server) handleTuningSearch(w http.ResponseWriter, r *http.Request) {
	var req tuningSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Config.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Limit < 1 {
		req.Limit = 10
	}

	parsed := s.parser.Parse(req.Query)
	if parsed.Expression == "" {
		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"results":     []models.BookGroup{},
			"total":       0,
			"query":       req.Query,
			"config_used": req.Config,
		})
		return
	}

	groups, total, err := s.engine.SearchWithBreakdown(r.Context(), parsed.Expression, parsed.ExactPhrase, req.Config, req.Limit)
	if err != nil {
		s.logger.Error("tuning search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results":     groups,
		"total":       total,
		"query":       parsed.Original,
		"config_used": req.Config,
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"config":  s.tuning.Current(),
		"profile": s.tuning.ActiveProfile(),
	})
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg scoring.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.tuning.SetCurrent(cfg); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"status": "updated", "config": cfg})
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	names, err := s.tuning.ListProfiles()
	if err != nil {
		s.logger.Error("list profiles failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"profiles": names})
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var p tuning.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.Name == "" {
		s.respondError(w, http.StatusBadRequest, "profile name is required")
		return
	}
	if err := s.tuning.SaveProfile(&p); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"status": "saved", "profile": p.Name})
}

func (s *Server) handleActivateProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.tuning.ActivateProfile(name) {
		s.respondError(w, http.StatusNotFound, "profile not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "activated",
		"profile": name,
		"config":  s.tuning.Current(),
	})
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	limit := queryInt(r, "limit", s.config.Search.DefaultLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > s.config.Search.MaxLimit {
		limit = s.config.Search.MaxLimit
	}

	books, err := s.storage.ListBooks(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list books failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.storage.CountBooks(r.Context())
	if err != nil {
		s.logger.Error("count books failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"books":  books,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	book, err := s.storage.GetBook(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "book not found")
		return
	}
	s.respondJSON(w, http.StatusOK, book)
}

func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	quote, err := s.storage.GetQuote(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "quote not found")
		return
	}
	s.respondJSON(w, http.StatusOK, quote)
}

// exportHighlight and exportExtract mirror the on-disk extract format, so
// an export can be re-imported as-is.
type exportHighlight struct {
	Page     int    `json:"page"`
	Text     string `json:"text"`
	Keywords string `json:"keywords"`
}

type exportExtract struct {
	File       string            `json:"file"`
	Highlights []exportHighlight `json:"highlights"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	books, err := s.storage.ListBooks(ctx, 0, -1)
	if err != nil {
		s.logger.Error("export: list books failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	quotes, err := s.storage.ListQuotes(ctx, 0, -1)
	if err != nil {
		s.logger.Error("export: list quotes failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sourceByBook := make(map[string]string, len(books))
	for _, b := range books {
		sourceByBook[b.ID] = b.SourceFile
	}

	extracts := make(map[string]*exportExtract)
	for _, q := range quotes {
		ex, ok := extracts[q.BookID]
		if !ok {
			ex = &exportExtract{File: sourceByBook[q.BookID]}
			extracts[q.BookID] = ex
		}
		ex.Highlights = append(ex.Highlights, exportHighlight{
			Page:     q.Page,
			Text:     q.Text,
			Keywords: q.Keywords,
		})
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"books":    books,
		"extracts": extracts,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bookCount, err := s.storage.CountBooks(ctx)
	if err != nil {
		s.logger.Error("status: count books failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	quoteCount, err := s.storage.CountQuotes(ctx)
	if err != nil {
		s.logger.Error("status: count quotes failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"books":          bookCount,
		"quotes":         quoteCount,
		"index_backend":  s.config.Index.Backend,
		"active_profile": s.tuning.ActiveProfile(),
		"config": map[string]interface{}{
			"database_path": s.config.Storage.DatabasePath,
			"profiles_dir":  s.config.Storage.ProfilesDir,
			"default_limit": s.config.Search.DefaultLimit,
			"max_limit":     s.config.Search.MaxLimit,
		},
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
