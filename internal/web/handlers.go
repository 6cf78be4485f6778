package web

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hpungsan/wisdom/internal/config"
	"github.com/hpungsan/wisdom/internal/errors"
	"github.com/hpungsan/wisdom/internal/ops"
	"github.com/hpungsan/wisdom/internal/wisdom"
)

// Handlers contains HTTP route handlers.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	engine   *ops.Engine
	logger   *zap.Logger
	renderer *Renderer
}

// NewHandlers builds the handlers and parses the embedded templates.
func NewHandlers(db *sql.DB, cfg *config.Config, opts Options) (*Handlers, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := opts.Engine
	if engine == nil {
		engine = ops.NewEngine(db, ops.WithLogger(logger))
	}

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	renderer, err := NewRenderer(templateSub, opts.Version, logger)
	if err != nil {
		return nil, err
	}

	return &Handlers{
		db:       db,
		cfg:      cfg,
		engine:   engine,
		logger:   logger,
		renderer: renderer,
	}, nil
}

type classifyRequest struct {
	Text    string `json:"text"`
	Explain bool   `json:"explain"`
}

type storeDropRequest struct {
	Title       string           `json:"title"`
	Content     string           `json:"content"`
	AuthorEmail string           `json:"author_email"`
	AuthorID    string           `json:"author_id"`
	Category    string           `json:"category"`
	Tags        []string         `json:"tags"`
	Layers      *wisdom.LayerSet `json:"layers"`
	CreatedAt   *int64           `json:"created_at"`
}

// HandleClassify handles POST /classify.
func (h *Handlers) HandleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	renderJSON(w, http.StatusOK, h.engine.Classify(req.Text, req.Explain))
}

// HandleDropStore handles POST /drops.
func (h *Handlers) HandleDropStore(w http.ResponseWriter, r *http.Request) {
	var req storeDropRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := ops.StoreDrop(r.Context(), h.db, h.cfg, ops.StoreDropInput{
		Title:       req.Title,
		Content:     req.Content,
		AuthorEmail: req.AuthorEmail,
		AuthorID:    req.AuthorID,
		Category:    req.Category,
		Tags:        req.Tags,
		Layers:      req.Layers,
		CreatedAt:   req.CreatedAt,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("Location", "/drops/"+strconv.FormatInt(result.ID, 10))
	renderJSON(w, http.StatusCreated, result)
}

// HandleDropList handles GET /drops.
func (h *Handlers) HandleDropList(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListDrops(r.Context(), h.db, ops.ListDropsInput{
		Category:    r.URL.Query().Get("category"),
		AuthorEmail: r.URL.Query().Get("author_email"),
		Limit:       parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:      parseIntParam(r, "offset", 0),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// HandleDropFetch handles GET /drops/{id}.
func (h *Handlers) HandleDropFetch(w http.ResponseWriter, r *http.Request) {
	id, err := parseDropID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := ops.FetchDrop(r.Context(), h.db, ops.FetchDropInput{
		ID:             id,
		IncludeContent: parseOptionalBool(r, "include_content"),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// HandleDropView handles POST /drops/{id}/views, recording one view.
func (h *Handlers) HandleDropView(w http.ResponseWriter, r *http.Request) {
	id, err := parseDropID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := ops.RecordDropView(r.Context(), h.db, id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleGenerate handles POST /drops/{id}/attribution.
// Returns 201 for a new document and 200 when the content was already attributed.
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	id, err := parseDropID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.engine.Generate(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	status := http.StatusOK
	if result.Status == ops.StatusCreated {
		status = http.StatusCreated
		w.Header().Set("Location", "/attributions/"+result.Document.ID)
	}
	renderJSON(w, status, result)
}

// HandleDocumentList handles GET /drops/{id}/attributions.
func (h *Handlers) HandleDocumentList(w http.ResponseWriter, r *http.Request) {
	id, err := parseDropID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := ops.ListDocuments(r.Context(), h.db, ops.ListDocumentsInput{
		WisdomID: id,
		Limit:    parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:   parseIntParam(r, "offset", 0),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// HandleDocumentFetch handles GET /attributions/{id}. Fetching is not a download.
func (h *Handlers) HandleDocumentFetch(w http.ResponseWriter, r *http.Request) {
	result, err := ops.FetchDocument(r.Context(), h.db, ops.FetchDocumentInput{
		ID:             chi.URLParam(r, "id"),
		IncludeContent: parseOptionalBool(r, "include_content"),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// HandleDocumentView handles GET /attributions/{id}/view, rendering the
// canonical markdown as an HTML page.
func (h *Handlers) HandleDocumentView(w http.ResponseWriter, r *http.Request) {
	doc, err := ops.FetchDocument(r.Context(), h.db, ops.FetchDocumentInput{
		ID: chi.URLParam(r, "id"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "document", DocumentPageData{
		PageData: PageData{
			Title:   "Attribution " + shortHash(doc.DocumentHash),
			Version: h.renderer.version,
		},
		Document:     doc,
		RenderedHTML: renderMarkdown(doc.Content),
		Filename:     ops.DocumentFilename(doc),
	})
}

// HandleDocumentDownload handles GET /attributions/{id}/download.
// The body is the canonical content byte for byte.
func (h *Handlers) HandleDocumentDownload(w http.ResponseWriter, r *http.Request) {
	result, err := ops.DownloadDocument(r.Context(), h.db, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("ETag", strconv.Quote(result.Document.DocumentHash))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(result.Document.Content))
}

// HandleVerify handles GET /attributions/{id}/verify.
func (h *Handlers) HandleVerify(w http.ResponseWriter, r *http.Request) {
	result, err := ops.VerifyDocument(r.Context(), h.db, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// decodeBody decodes a JSON request body into v, bounded by maxRequestBody.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// parseDropID reads the {id} path parameter as a drop id.
func parseDropID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewInvalidRequest(fmt.Sprintf("invalid drop id: %q", raw))
	}
	return id, nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

// parseOptionalBool returns nil when the parameter is absent.
func parseOptionalBool(r *http.Request, name string) *bool {
	if !r.URL.Query().Has(name) {
		return nil
	}
	v := parseBoolParam(r, name)
	return &v
}
