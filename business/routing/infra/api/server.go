// Package api exposes the router over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fd1az/omniroute/internal/config"
)

// Server serves the API on its own listener.
type Server struct {
	http   *http.Server
	logger *zerolog.Logger
}

// NewServer installs the middleware stack and the API routes on mux.
func NewServer(cfg config.ServerConfig, mux *chi.Mux, h *Handler, zl *zerolog.Logger) *Server {
	Mount(mux, h, zl, cfg.RequestsPerMinute)

	return &Server{
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           otelhttp.NewHandler(mux, "omniroute.api"),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       120 * time.Second,
		},
		logger: zl,
	}
}

// Mount registers middleware and routes. ratePerMinute <= 0 disables the
// per-IP limit.
func Mount(mux chi.Router, h *Handler, zl *zerolog.Logger, ratePerMinute int) {
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(requestLogger(zl))
	mux.Use(recoverer(zl))
	if ratePerMinute > 0 {
		mux.Use(httprate.LimitByIP(ratePerMinute, time.Minute))
	}

	mux.Route("/v1", func(r chi.Router) {
		r.Post("/quote", h.Quote)
		r.Post("/transactions", h.Transaction)
		r.Post("/completions", h.Completion)
	})
}

// Start listens in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("api listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("api server stopped")
		}
	}()
}

// Stop drains in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func requestLogger(zl *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			zl.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}

func recoverer(zl *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					zl.Error().Interface("panic", rvr).Str("path", r.URL.Path).Msg("recovered from panic")
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
