// Package server exposes the extraction and comparison pipeline over HTTP.
//
// Endpoints:
//
//	GET  /              service description
//	GET  /health        liveness
//	POST /api/extract   multipart "file": extracted text, pages and stats
//	POST /api/compare   multipart "file1", "file2": both extractions and an HTML line diff
//	POST /api/diff      multipart "file1", "file2": rows, segments, regions and the annotated PDF
//	POST /api/render    multipart "file", ?page=N: one page as PNG
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/tsawler/pdfcompare/annotate"
	"github.com/tsawler/pdfcompare/extract"
	"github.com/tsawler/pdfcompare/highlight"
	"github.com/tsawler/pdfcompare/ocr"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "pdf-comparator-api"

// Options configures the server.
type Options struct {
	Version string

	MaxUploadBytes  int64
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	Extract      extract.Config
	Annotate     annotate.Options
	HeightFactor float64

	// Recognizer enables OCR in every extraction. Nil disables it.
	Recognizer extract.Recognizer

	// RenderDPI is the default resolution of /api/render.
	RenderDPI float64
}

// DefaultOptions returns the server defaults.
func DefaultOptions() Options {
	return Options{
		Version:         "1.0.0",
		MaxUploadBytes:  50 << 20,
		RequestTimeout:  5 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
		Extract:         extract.DefaultConfig(),
		Annotate:        annotate.DefaultOptions(),
		HeightFactor:    highlight.DefaultHeightFactor,
		RenderDPI:       96,
	}
}

// PageRenderer rasterizes one page to PNG. ocr.Renderer implements it.
type PageRenderer interface {
	RenderPNG(ctx context.Context, data []byte, page int, dpi float64) ([]byte, error)
}

// Server holds the handlers and their dependencies.
type Server struct {
	opts     Options
	logger   zerolog.Logger
	renderer PageRenderer
	renders  *renderRegistry
	router   chi.Router
}

// New creates a server. Zero option values take their defaults.
func New(opts Options, logger zerolog.Logger) *Server {
	d := DefaultOptions()
	if opts.Version == "" {
		opts.Version = d.Version
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = d.MaxUploadBytes
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = d.RequestTimeout
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = d.ShutdownTimeout
	}
	if opts.Extract == (extract.Config{}) {
		opts.Extract = d.Extract
	}
	if opts.Annotate.Opacity == 0 {
		opts.Annotate = d.Annotate
	}
	if opts.HeightFactor < 1 {
		opts.HeightFactor = d.HeightFactor
	}
	if opts.RenderDPI <= 0 {
		opts.RenderDPI = d.RenderDPI
	}

	s := &Server{
		opts:     opts,
		logger:   logger,
		renderer: ocr.Renderer{MaxPixels: ocr.DefaultConfig().MaxPixels},
		renders:  newRenderRegistry(),
	}
	s.router = s.routes()
	return s
}

// WithRenderer replaces the page rasterizer.
func (s *Server) WithRenderer(r PageRenderer) *Server {
	s.renderer = r
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(s.opts.RequestTimeout))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/extract", s.handleExtract)
		r.Post("/compare", s.handleCompare)
		r.Post("/diff", s.handleDiff)
		r.Post("/render", s.handleRender)
	})
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully within Options.ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info().Msg("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		if closeErr := srv.Close(); closeErr != nil {
			s.logger.Error().Err(closeErr).Msg("forced shutdown failed")
		}
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	s.logger.Info().Msg("server stopped")
	return nil
}
