package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/hpungsan/wisdom/internal/errors"
	"github.com/hpungsan/wisdom/internal/wisdom"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
}

// DocumentPageData is the template data for the document view page.
type DocumentPageData struct {
	PageData
	Document     *wisdom.AttributionDocument
	RenderedHTML template.HTML
	Filename     string
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	logger    *zap.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, logger *zap.Logger) (*Renderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	funcMap := template.FuncMap{
		"formatTime":  formatTime,
		"formatChars": formatChars,
		"shortHash":   shortHash,
	}

	layoutTmpl, err := template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pages := map[string]string{
		"document": "document.html",
		"error":    "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t, err := layoutTmpl.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout: %w", err)
		}
		if _, err := t.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		logger:    logger,
	}, nil
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		r.logger.Error("template not found", zap.String("template", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.logger.Error("template execution failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an HTML error page, or JSON when the client asks for it.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		writeError(w, r.logger, err)
		return
	}

	wErr := toWisdomError(r.logger, err)
	r.renderPageStatus(w, wErr.Status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", wErr.Status),
			Version: r.version,
		},
		StatusCode: wErr.Status,
		Message:    wErr.Message,
	})
}

// toWisdomError maps any error to the WisdomError shown to clients.
// Server-side failures are logged with their cause.
func toWisdomError(logger *zap.Logger, err error) *errors.WisdomError {
	wErr, ok := errors.As(err)
	if !ok {
		logger.Error("unexpected handler error", zap.Error(err))
		return &errors.WisdomError{
			Code:    errors.ErrInternal,
			Status:  http.StatusInternalServerError,
			Message: "an internal error occurred",
		}
	}
	if wErr.Status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("code", string(wErr.Code)),
			zap.Error(err),
		)
	}
	return wErr
}

// writeError writes the JSON error envelope used by every API route.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	wErr := toWisdomError(logger, err)

	errorObj := map[string]any{
		"code":    string(wErr.Code),
		"message": wErr.Message,
		"status":  wErr.Status,
	}
	if wErr.Code != errors.ErrInternal && wErr.Code != errors.ErrStorageFailure && wErr.Details != nil {
		errorObj["details"] = wErr.Details
	}
	renderJSON(w, wErr.Status, map[string]any{"error": errorObj})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML using goldmark.
// Raw HTML in the source is omitted by goldmark's default renderer.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// formatChars formats an integer with comma thousands separators.
func formatChars(n int) string {
	if n < 0 {
		return "-" + formatChars(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// shortHash returns the first 12 characters of a document hash.
func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
