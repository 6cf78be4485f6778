package web

import (
	"context"
	"database/sql"
	"embed"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hpungsan/wisdom/internal/config"
	"github.com/hpungsan/wisdom/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

const maxRequestBody = 1 << 20

// Options carries the optional collaborators of the HTTP server.
type Options struct {
	Engine   *ops.Engine
	Logger   *zap.Logger
	Gatherer prometheus.Gatherer // nil disables GET /metrics
	Version  string
}

// NewServer creates and configures the HTTP server.
// The listen address comes from cfg.HTTPBind and cfg.HTTPPort.
func NewServer(db *sql.DB, cfg *config.Config, opts Options) (*http.Server, error) {
	h, err := NewHandlers(db, cfg, opts)
	if err != nil {
		return nil, err
	}

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           NewRouter(h, opts.Gatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// NewRouter wires every route onto a chi router.
func NewRouter(h *Handlers, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.logger))
	r.Use(securityHeaders)

	r.Post("/classify", h.HandleClassify)

	r.Route("/drops", func(r chi.Router) {
		r.Get("/", h.HandleDropList)
		r.Post("/", h.HandleDropStore)
		r.Get("/{id}", h.HandleDropFetch)
		r.Post("/{id}/views", h.HandleDropView)
		r.Post("/{id}/attribution", h.HandleGenerate)
		r.Get("/{id}/attributions", h.HandleDocumentList)
	})

	r.Route("/attributions/{id}", func(r chi.Router) {
		r.Get("/", h.HandleDocumentFetch)
		r.Get("/view", h.HandleDocumentView)
		r.Get("/download", h.HandleDocumentDownload)
		r.Get("/verify", h.HandleVerify)
	})

	if staticSub, err := fs.Sub(staticFS, "static"); err == nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(staticSub)))
	}

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// Run starts the HTTP server and shuts it down gracefully when ctx is done.
func Run(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("wisdom HTTP server running", zap.String("addr", "http://"+srv.Addr))

	if strings.HasPrefix(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
