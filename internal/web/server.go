// Package web serves the browser-facing signing API: one logical
// signing session driven over JSON and multipart endpoints.
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/semaphore"

	"github.com/minatonamikaze1763/DGSIGNER/internal/config"
	"github.com/minatonamikaze1763/DGSIGNER/internal/sign"
)

const (
	// maxHeavyOps bounds concurrent renders and compositions.
	maxHeavyOps = 4

	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second

	// jsonBodyLimit bounds the small JSON control requests; uploads get
	// the configured file size limit instead.
	jsonBodyLimit = 1 << 20
)

// Server is the HTTP signing API.
type Server struct {
	cfg        *config.Config
	svc        *sign.Service
	validate   *validator.Validate
	heavy      *semaphore.Weighted
	httpServer *http.Server
}

// NewServer creates the HTTP server around a signing service.
func NewServer(cfg *config.Config, svc *sign.Service) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("signing service cannot be nil")
	}

	s := &Server{
		cfg:      cfg,
		svc:      svc,
		validate: validator.New(),
		heavy:    semaphore.NewWeighted(maxHeavyOps),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Address(),
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s, nil
}

// routes wires the API endpoints.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/info", s.handleInfo)
	mux.HandleFunc("POST /api/document", s.handleLoadDocument)
	mux.HandleFunc("GET /api/document/page", s.handleRenderPage)
	mux.HandleFunc("GET /api/document/page/text", s.handlePageText)
	mux.HandleFunc("POST /api/selection/begin", s.handleSelectionBegin)
	mux.HandleFunc("POST /api/selection/update", s.handleSelectionUpdate)
	mux.HandleFunc("POST /api/selection/end", s.handleSelectionEnd)
	mux.HandleFunc("POST /api/selection/invalidate", s.handleSelectionInvalidate)
	mux.HandleFunc("POST /api/asset", s.handleLoadAsset)
	mux.HandleFunc("POST /api/asset/inspect", s.handleInspectAsset)
	mux.HandleFunc("POST /api/apply", s.handleApply)

	return mux
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if s.cfg.IsDebug() {
			log.Printf("Starting signing API on %s", s.httpServer.Addr)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		return <-errCh
	}
}
