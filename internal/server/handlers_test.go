package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/guildfordia/the-library/internal/config"
	"github.com/guildfordia/the-library/internal/index"
	"github.com/guildfordia/the-library/internal/models"
	"github.com/guildfordia/the-library/internal/query"
	"github.com/guildfordia/the-library/internal/ranking"
	"github.com/guildfordia/the-library/internal/scoring"
	"github.com/guildfordia/the-library/internal/storage"
	"github.com/guildfordia/the-library/internal/tuning"
)

func newTestServer(t *testing.T) (*Server, storage.Storage, index.Writer) {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.NewSQLiteStorage(dir + "/library.db")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	fts, err := index.NewFTS(store.DB())
	if err != nil {
		t.Fatal(err)
	}

	profiles, err := tuning.NewFSStore(dir + "/profiles")
	if err != nil {
		t.Fatal(err)
	}
	logger := zap.NewNop()
	manager, err := tuning.NewManager(profiles, logger)
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	engine := ranking.NewEngine(fts, store, &cfg.Search, logger)

	srv := NewServer(engine, query.NewParser(), manager, store, cfg, logger)
	return srv, store, fts
}

func seedLibrary(t *testing.T, store storage.Storage, w index.Writer) models.Book {
	t.Helper()
	ctx := context.Background()
	book := models.Book{
		ID:        "b1",
		Title:     "Gravity and Grace",
		Authors:   "Simone Weil",
		Year:      1947,
		Publisher: "Plon",
		Themes:    "attention",
		ISO690:    "WEIL, Simone. Gravity and Grace. Plon, 1947.",
	}
	if err := store.CreateBook(ctx, &book); err != nil {
		t.Fatal(err)
	}
	quotes := []*models.Quote{
		{ID: "q1", BookID: "b1", Text: "Attention is the rarest and purest form of generosity.", Page: 12},
		{ID: "q2", BookID: "b1", Text: "Grace fills empty spaces.", Page: 45},
	}
	if err := store.BatchCreateQuotes(ctx, quotes); err != nil {
		t.Fatal(err)
	}
	for _, q := range quotes {
		if err := w.Add(ctx, *q, book); err != nil {
			t.Fatal(err)
		}
	}
	return book
}

func doRequest(srv *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHandleSearch(t *testing.T) {
	srv, store, fts := newTestServer(t)
	seedLibrary(t, store, fts)

	w := doRequest(srv, http.MethodGet, "/api/v1/search?q=attention", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp models.SearchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 {
		t.Fatalf("total = %d, want 1", resp.Total)
	}
	g := resp.Results[0]
	if g.Book.Title != "Gravity and Grace" {
		t.Errorf("book title = %q", g.Book.Title)
	}
	// Both quotes match: q1 in its text, q2 through the book's themes,
	// which are indexed alongside every quote.
	if g.HitsCount != 2 {
		t.Errorf("hits_count = %d, want 2", g.HitsCount)
	}
	if g.TotalQuotes != 2 {
		t.Errorf("total_book_quotes = %d, want 2", g.TotalQuotes)
	}
	if len(g.TopQuotes) != 2 {
		t.Fatalf("top quotes = %+v, want 2", g.TopQuotes)
	}
	if g.TopQuotes[0].ID != "q1" {
		t.Errorf("best quote = %s, want q1 (text match outranks themes-only)", g.TopQuotes[0].ID)
	}
	if g.TopQuotes[0].Breakdown != nil {
		t.Error("fast path should not carry breakdowns")
	}
	if resp.Query != "attention" {
		t.Errorf("query echo = %q", resp.Query)
	}
}

func TestHandleSearch_BadRequests(t *testing.T) {
	srv, _, _ := newTestServer(t)

	tests := []struct {
		name   string
		target string
	}{
		{"missing q", "/api/v1/search"},
		{"invalid characters", "/api/v1/search?q=DROP%3B"},
		{"bare operator", "/api/v1/search?q=AND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(srv, http.MethodGet, tt.target, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestHandleSearchDebug(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := doRequest(srv, http.MethodGet, `/api/v1/search/debug?q=%22black+mountain%22+college`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out struct {
		Expression  string `json:"expression"`
		ExactPhrase string `json:"exact_phrase"`
		IsValid     bool   `json:"is_valid"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.ExactPhrase != "black mountain" {
		t.Errorf("exact_phrase = %q", out.ExactPhrase)
	}
	if out.Expression != "black OR mountain OR college" {
		t.Errorf("expression = %q", out.Expression)
	}
	if !out.IsValid {
		t.Error("expected valid query")
	}
}

func TestHandleTuningSearch(t *testing.T) {
	srv, store, fts := newTestServer(t)
	seedLibrary(t, store, fts)

	body, _ := json.Marshal(map[string]interface{}{
		"query":  "attention",
		"config": scoring.DefaultConfig(),
		"limit":  10,
	})
	w := doRequest(srv, http.MethodPost, "/api/v1/tuning/search", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Results []models.BookGroup `json:"results"`
		Total   int                `json:"total"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 {
		t.Fatalf("total = %d, want 1", resp.Total)
	}
	bd := resp.Results[0].TopQuotes[0].Breakdown
	if bd == nil {
		t.Fatal("expected score breakdown on tuning path")
	}
	if bd.FinalScore != resp.Results[0].TopQuotes[0].Score {
		t.Errorf("breakdown final %v != score %v", bd.FinalScore, resp.Results[0].TopQuotes[0].Score)
	}
	// "attention" appears in quote text and book themes.
	if _, ok := bd.FieldMatches["quote_text"]; !ok {
		t.Errorf("field matches = %v, want quote_text", bd.FieldMatches)
	}
	if _, ok := bd.FieldMatches["themes"]; !ok {
		t.Errorf("field matches = %v, want themes", bd.FieldMatches)
	}
}

func TestHandleTuningSearch_RejectsNegativeWeights(t *testing.T) {
	srv, _, _ := newTestServer(t)

	cfg := scoring.DefaultConfig()
	cfg.PhraseBonus = -1
	body, _ := json.Marshal(map[string]interface{}{"query": "x", "config": cfg})
	w := doRequest(srv, http.MethodPost, "/api/v1/tuning/search", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestTuningConfigRoundTrip(t *testing.T) {
	srv, _, _ := newTestServer(t)

	updated := scoring.DefaultConfig()
	updated.PhraseBonus = 5.0
	body, _ := json.Marshal(updated)
	w := doRequest(srv, http.MethodPut, "/api/v1/tuning/config", body)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT status = %d", w.Code)
	}

	w = doRequest(srv, http.MethodGet, "/api/v1/tuning/config", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d", w.Code)
	}
	var out struct {
		Config  scoring.Config `json:"config"`
		Profile string         `json:"profile"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Config.PhraseBonus != 5.0 {
		t.Errorf("PhraseBonus = %v, want 5.0", out.Config.PhraseBonus)
	}
	if out.Profile != tuning.DefaultProfileName {
		t.Errorf("profile = %q, want default", out.Profile)
	}
}

func TestProfileLifecycle(t *testing.T) {
	srv, _, _ := newTestServer(t)

	cfg := scoring.DefaultConfig()
	cfg.FieldWeights.Title = 10
	body, _ := json.Marshal(tuning.Profile{
		Name:        "title-heavy",
		Description: "Boost title matches",
		Config:      cfg,
	})
	w := doRequest(srv, http.MethodPost, "/api/v1/tuning/profiles", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("save status = %d, body %s", w.Code, w.Body.String())
	}

	w = doRequest(srv, http.MethodGet, "/api/v1/tuning/profiles", nil)
	var list struct {
		Profiles []string `json:"profiles"`
	}
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, name := range list.Profiles {
		if name == "title-heavy" {
			found = true
		}
	}
	if !found {
		t.Fatalf("profiles = %v, want title-heavy", list.Profiles)
	}

	w = doRequest(srv, http.MethodPost, "/api/v1/tuning/profiles/title-heavy/activate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("activate status = %d", w.Code)
	}

	w = doRequest(srv, http.MethodGet, "/api/v1/tuning/config", nil)
	var out struct {
		Config  scoring.Config `json:"config"`
		Profile string         `json:"profile"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Profile != "title-heavy" {
		t.Errorf("active profile = %q", out.Profile)
	}
	if out.Config.FieldWeights.Title != 10 {
		t.Errorf("Title weight = %v, want 10", out.Config.FieldWeights.Title)
	}
}

func TestActivateProfile_NotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)
	w := doRequest(srv, http.MethodPost, "/api/v1/tuning/profiles/ghost/activate", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestBookAndQuoteLookup(t *testing.T) {
	srv, store, fts := newTestServer(t)
	book := seedLibrary(t, store, fts)

	w := doRequest(srv, http.MethodGet, "/api/v1/books/"+book.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("book status = %d", w.Code)
	}
	var got models.Book
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Title != book.Title {
		t.Errorf("title = %q", got.Title)
	}

	w = doRequest(srv, http.MethodGet, "/api/v1/quotes/q1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("quote status = %d", w.Code)
	}
	var detail models.QuoteDetail
	if err := json.NewDecoder(w.Body).Decode(&detail); err != nil {
		t.Fatal(err)
	}
	if detail.Citation == "" {
		t.Error("expected citation")
	}
	if detail.Book.ID != book.ID {
		t.Errorf("quote book = %q", detail.Book.ID)
	}

	w = doRequest(srv, http.MethodGet, "/api/v1/books/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing book status = %d, want 404", w.Code)
	}
	w = doRequest(srv, http.MethodGet, "/api/v1/quotes/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing quote status = %d, want 404", w.Code)
	}
}

func TestHandleListBooks(t *testing.T) {
	srv, store, fts := newTestServer(t)
	seedLibrary(t, store, fts)

	w := doRequest(srv, http.MethodGet, "/api/v1/books", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out struct {
		Books []models.Book `json:"books"`
		Total int64         `json:"total"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Total != 1 || len(out.Books) != 1 {
		t.Errorf("total = %d, books = %d, want 1, 1", out.Total, len(out.Books))
	}
}

func TestHandleExport(t *testing.T) {
	srv, store, fts := newTestServer(t)
	book := seedLibrary(t, store, fts)

	w := doRequest(srv, http.MethodGet, "/api/v1/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out struct {
		Books    []models.Book            `json:"books"`
		Extracts map[string]exportExtract `json:"extracts"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Books) != 1 {
		t.Fatalf("books = %d, want 1", len(out.Books))
	}
	ex, ok := out.Extracts[book.ID]
	if !ok {
		t.Fatalf("extracts = %v, want entry for %s", out.Extracts, book.ID)
	}
	if len(ex.Highlights) != 2 {
		t.Errorf("highlights = %d, want 2", len(ex.Highlights))
	}
}

func TestHealthAndStatus(t *testing.T) {
	srv, store, fts := newTestServer(t)
	seedLibrary(t, store, fts)

	w := doRequest(srv, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}

	w = doRequest(srv, http.MethodGet, "/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status status = %d", w.Code)
	}
	var out struct {
		Books         int64  `json:"books"`
		Quotes        int64  `json:"quotes"`
		IndexBackend  string `json:"index_backend"`
		ActiveProfile string `json:"active_profile"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Books != 1 || out.Quotes != 2 {
		t.Errorf("counts = %d books %d quotes, want 1, 2", out.Books, out.Quotes)
	}
	if out.IndexBackend != config.BackendFTS5 {
		t.Errorf("backend = %q", out.IndexBackend)
	}
	if out.ActiveProfile != tuning.DefaultProfileName {
		t.Errorf("active profile = %q", out.ActiveProfile)
	}
}
