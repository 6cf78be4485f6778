package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hpungsan/wisdom/internal/config"
	"github.com/hpungsan/wisdom/internal/db"
	"github.com/hpungsan/wisdom/internal/metrics"
	"github.com/hpungsan/wisdom/internal/ops"
)

const scenarioContent = "I felt a warm stillness. I noticed the clock's quiet hum."

type testServer struct {
	h      *Handlers
	router http.Handler
}

func setupTest(t *testing.T) *testServer {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	reg := prometheus.NewRegistry()
	engine := ops.NewEngine(database,
		ops.WithMetrics(metrics.New(reg)),
		ops.WithClock(func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }),
	)

	h, err := NewHandlers(database, cfg, Options{Engine: engine, Version: "test"})
	if err != nil {
		t.Fatalf("NewHandlers: %v", err)
	}
	return &testServer{h: h, router: NewRouter(h, reg)}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// seedDrop stores the scenario drop and returns its id.
func seedDrop(t *testing.T, s *testServer, title string) int64 {
	t.Helper()
	createdAt := int64(1704067200)
	out, err := ops.StoreDrop(context.Background(), s.h.db, s.h.cfg, ops.StoreDropInput{
		Title:       title,
		Content:     scenarioContent,
		AuthorEmail: "a@x.com",
		Category:    "memoir",
		Tags:        []string{"quiet"},
		CreatedAt:   &createdAt,
	})
	if err != nil {
		t.Fatalf("seed drop %q: %v", title, err)
	}
	return out.ID
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode JSON: %v (body=%q)", err, rec.Body.String())
	}
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := decodeJSON(t, rec)["error"].(map[string]any)
	if !ok {
		t.Fatal("expected error object in JSON response")
	}
	return errObj["code"].(string)
}

// --- classify ---

func TestHandleClassify(t *testing.T) {
	s := setupTest(t)

	rec := s.do(t, "POST", "/classify", map[string]any{"text": scenarioContent, "explain": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	out := decodeJSON(t, rec)
	layers := out["layers"].(map[string]any)
	if len(layers) != 5 {
		t.Errorf("layers = %d fields, want 5", len(layers))
	}
	if _, ok := out["explain"]; !ok {
		t.Error("expected explain in response")
	}
}

func TestHandleClassify_InvalidJSON(t *testing.T) {
	s := setupTest(t)

	req := httptest.NewRequest("POST", "/classify", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_REQUEST" {
		t.Errorf("code = %s, want INVALID_REQUEST", code)
	}
}

// --- drops ---

func TestHandleDropStore(t *testing.T) {
	s := setupTest(t)

	rec := s.do(t, "POST", "/drops", map[string]any{
		"title":        "T",
		"content":      scenarioContent,
		"author_email": "a@x.com",
		"tags":         []string{"quiet"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body=%s)", rec.Code, rec.Body.String())
	}
	out := decodeJSON(t, rec)
	id := int64(out["id"].(float64))
	if want := fmt.Sprintf("/drops/%d", id); rec.Header().Get("Location") != want {
		t.Errorf("Location = %q, want %q", rec.Header().Get("Location"), want)
	}
}

func TestHandleDropStore_Invalid(t *testing.T) {
	s := setupTest(t)

	tests := []struct {
		name     string
		body     map[string]any
		wantCode int
		wantErr  string
	}{
		{
			name:     "missing title",
			body:     map[string]any{"content": "x", "author_email": "a@x.com"},
			wantCode: http.StatusBadRequest,
			wantErr:  "INVALID_REQUEST",
		},
		{
			name:     "bad email",
			body:     map[string]any{"title": "T", "content": "x", "author_email": "nope"},
			wantCode: http.StatusBadRequest,
			wantErr:  "INVALID_REQUEST",
		},
		{
			name: "too large",
			body: map[string]any{
				"title":        "T",
				"content":      strings.Repeat("a", config.DefaultContentMaxChars+1),
				"author_email": "a@x.com",
			},
			wantCode: http.StatusRequestEntityTooLarge,
			wantErr:  "CONTENT_TOO_LARGE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, "POST", "/drops", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if code := errorCode(t, rec); code != tt.wantErr {
				t.Errorf("code = %s, want %s", code, tt.wantErr)
			}
		})
	}
}

func TestHandleDropList(t *testing.T) {
	s := setupTest(t)
	seedDrop(t, s, "alpha")
	seedDrop(t, s, "beta")

	rec := s.do(t, "GET", "/drops?limit=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	out := decodeJSON(t, rec)
	if items := out["items"].([]any); len(items) != 1 {
		t.Errorf("items = %d, want 1", len(items))
	}
	pagination := out["pagination"].(map[string]any)
	if pagination["has_more"] != true {
		t.Error("expected has_more=true")
	}
	if pagination["total"] != float64(2) {
		t.Errorf("total = %v, want 2", pagination["total"])
	}
}

func TestHandleDropFetch(t *testing.T) {
	s := setupTest(t)
	id := seedDrop(t, s, "alpha")

	rec := s.do(t, "GET", fmt.Sprintf("/drops/%d?include_content=false", id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	out := decodeJSON(t, rec)
	if out["title"] != "alpha" {
		t.Errorf("title = %v, want alpha", out["title"])
	}
	if out["content"] != "" {
		t.Errorf("content = %v, want empty", out["content"])
	}
}

func TestHandleDropFetch_Errors(t *testing.T) {
	s := setupTest(t)

	tests := []struct {
		path     string
		wantCode int
	}{
		{"/drops/999", http.StatusNotFound},
		{"/drops/abc", http.StatusBadRequest},
		{"/drops/0", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := s.do(t, "GET", tt.path, nil)
		if rec.Code != tt.wantCode {
			t.Errorf("GET %s status = %d, want %d", tt.path, rec.Code, tt.wantCode)
		}
	}
}

func TestHandleDropView(t *testing.T) {
	s := setupTest(t)
	id := seedDrop(t, s, "alpha")

	rec := s.do(t, "POST", fmt.Sprintf("/drops/%d/views", id), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	out := decodeJSON(t, s.do(t, "GET", fmt.Sprintf("/drops/%d", id), nil))
	if out["views"] != float64(1) {
		t.Errorf("views = %v, want 1", out["views"])
	}
}

// --- attribution ---

func TestHandleGenerate(t *testing.T) {
	s := setupTest(t)
	id := seedDrop(t, s, "T")
	path := fmt.Sprintf("/drops/%d/attribution", id)

	rec := s.do(t, "POST", path, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body=%s)", rec.Code, rec.Body.String())
	}
	first := decodeJSON(t, rec)
	if first["status"] != "created" {
		t.Fatalf("status = %v, want created", first["status"])
	}
	docID := first["document"].(map[string]any)["id"].(string)
	if rec.Header().Get("Location") != "/attributions/"+docID {
		t.Errorf("Location = %q", rec.Header().Get("Location"))
	}

	rec = s.do(t, "POST", path, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("retry status = %d, want 200", rec.Code)
	}
	second := decodeJSON(t, rec)
	if second["status"] != "already_exists" {
		t.Errorf("status = %v, want already_exists", second["status"])
	}
	if second["existing_id"] != docID {
		t.Errorf("existing_id = %v, want %s", second["existing_id"], docID)
	}
	if second["document_hash"] != first["document_hash"] {
		t.Error("retry should report the same hash")
	}
}

func TestHandleGenerate_NotFound(t *testing.T) {
	s := setupTest(t)

	rec := s.do(t, "POST", "/drops/999/attribution", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if code := errorCode(t, rec); code != "NOT_FOUND" {
		t.Errorf("code = %s, want NOT_FOUND", code)
	}
}

// generate stores a drop, attributes it and returns the document id.
func generate(t *testing.T, s *testServer) (int64, string) {
	t.Helper()
	id := seedDrop(t, s, "T")
	rec := s.do(t, "POST", fmt.Sprintf("/drops/%d/attribution", id), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate status = %d", rec.Code)
	}
	return id, decodeJSON(t, rec)["document"].(map[string]any)["id"].(string)
}

func TestHandleDocumentList(t *testing.T) {
	s := setupTest(t)
	id, docID := generate(t, s)

	rec := s.do(t, "GET", fmt.Sprintf("/drops/%d/attributions", id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	items := decodeJSON(t, rec)["items"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["id"] != docID {
		t.Errorf("items = %v, want [%s]", items, docID)
	}

	if rec := s.do(t, "GET", "/drops/999/attributions", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown drop status = %d, want 404", rec.Code)
	}
}

func TestHandleDocumentFetch(t *testing.T) {
	s := setupTest(t)
	_, docID := generate(t, s)

	rec := s.do(t, "GET", "/attributions/"+docID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	out := decodeJSON(t, rec)
	if !strings.HasPrefix(out["content"].(string), "# T\n") {
		t.Errorf("content should start with the title heading, got %q", out["content"])
	}
	if out["download_count"] != float64(0) {
		t.Errorf("fetch must not count as a download, download_count = %v", out["download_count"])
	}

	if rec := s.do(t, "GET", "/attributions/NOPE", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown document status = %d, want 404", rec.Code)
	}
}

func TestHandleDocumentDownload(t *testing.T) {
	s := setupTest(t)
	dropID, docID := generate(t, s)

	fetched := decodeJSON(t, s.do(t, "GET", "/attributions/"+docID, nil))

	rec := s.do(t, "GET", "/attributions/"+docID+"/download", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, fmt.Sprintf("wisdom-%d-", dropID)) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if rec.Body.String() != fetched["content"] {
		t.Error("download body must equal stored content byte for byte")
	}

	after := decodeJSON(t, s.do(t, "GET", "/attributions/"+docID, nil))
	if after["download_count"] != float64(1) {
		t.Errorf("download_count = %v, want 1", after["download_count"])
	}
	if after["document_hash"] != fetched["document_hash"] {
		t.Error("download must not change the hash")
	}
}

func TestHandleVerify(t *testing.T) {
	s := setupTest(t)
	_, docID := generate(t, s)

	rec := s.do(t, "GET", "/attributions/"+docID+"/verify", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if out := decodeJSON(t, rec); out["valid"] != true {
		t.Errorf("valid = %v, want true", out["valid"])
	}
}

// --- HTML view ---

func TestHandleDocumentView(t *testing.T) {
	s := setupTest(t)
	_, docID := generate(t, s)

	rec := s.do(t, "GET", "/attributions/"+docID+"/view", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("expected full layout")
	}
	if !strings.Contains(body, "<h1>T</h1>") {
		t.Error("expected markdown title rendered as <h1>")
	}
	if !strings.Contains(body, "<h3>Narrative</h3>") {
		t.Error("expected layer heading rendered as <h3>")
	}

	// Viewing is not a download
	out := decodeJSON(t, s.do(t, "GET", "/attributions/"+docID, nil))
	if out["download_count"] != float64(0) {
		t.Errorf("download_count = %v, want 0", out["download_count"])
	}
}

func TestErrorRendering_FullErrorPage(t *testing.T) {
	s := setupTest(t)

	rec := s.do(t, "GET", "/attributions/NONEXISTENT/view", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("full error page should contain layout")
	}
	if !strings.Contains(body, "404") {
		t.Error("error page should show status code")
	}
}

func TestErrorRendering_JSONError(t *testing.T) {
	s := setupTest(t)

	rec := s.do(t, "GET", "/attributions/NONEXISTENT/view", nil, "Accept", "application/json")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	errObj := decodeJSON(t, rec)["error"].(map[string]any)
	if errObj["status"] != float64(404) {
		t.Errorf("error.status = %v, want 404", errObj["status"])
	}
}

// --- middleware and metrics ---

func TestSecurityHeaders(t *testing.T) {
	s := setupTest(t)

	rec := s.do(t, "GET", "/drops", nil)
	for _, header := range []string{"Content-Security-Policy", "X-Content-Type-Options", "X-Frame-Options"} {
		if rec.Header().Get(header) == "" {
			t.Errorf("missing %s header", header)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTest(t)
	generate(t, s)

	rec := s.do(t, "GET", "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `wisdom_attribution_outcomes_total{outcome="created"} 1`) {
		t.Errorf("expected created outcome in metrics output:\n%s", body)
	}
}

func TestStaticAssets(t *testing.T) {
	s := setupTest(t)

	rec := s.do(t, "GET", "/static/style.css", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

// --- helpers ---

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		query    string
		name     string
		def      int
		expected int
	}{
		{"", "limit", 20, 20},
		{"limit=50", "limit", 20, 50},
		{"limit=bad", "limit", 20, 20},
		{"offset=10", "offset", 0, 10},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/?"+tt.query, nil)
		got := parseIntParam(req, tt.name, tt.def)
		if got != tt.expected {
			t.Errorf("parseIntParam(%q, %q, %d) = %d, want %d", tt.query, tt.name, tt.def, got, tt.expected)
		}
	}
}

func TestParseOptionalBool(t *testing.T) {
	tests := []struct {
		query string
		want  *bool
	}{
		{"", nil},
		{"include_content=true", boolPtr(true)},
		{"include_content=1", boolPtr(true)},
		{"include_content=false", boolPtr(false)},
		{"include_content=yes", boolPtr(false)},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/?"+tt.query, nil)
		got := parseOptionalBool(req, "include_content")
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("parseOptionalBool(%q) = %v, want nil", tt.query, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("parseOptionalBool(%q) = %v, want %v", tt.query, got, *tt.want)
		}
	}
}

func TestFormatChars(t *testing.T) {
	tests := map[int]string{0: "0", 999: "999", 1000: "1,000", 1234567: "1,234,567", -1200: "-1,200"}
	for n, want := range tests {
		if got := formatChars(n); got != want {
			t.Errorf("formatChars(%d) = %q, want %q", n, got, want)
		}
	}
}

func boolPtr(b bool) *bool { return &b }
