package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"unitprice/pipeline/internal/config"
	"unitprice/pipeline/internal/observability"
)

// Server runs the dashboard API.
type Server struct {
	handler         *Handler
	metrics         config.MetricsConfig
	addr            string
	shutdownTimeout time.Duration
}

func NewServer(cfg config.ServerConfig, metrics config.MetricsConfig, handler *Handler) *Server {
	return &Server{
		handler:         handler,
		metrics:         metrics,
		addr:            cfg.Addr(),
		shutdownTimeout: time.Duration(max(1, cfg.ShutdownTimeout)) * time.Second,
	}
}

// Routes returns the API mux with request counting applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	s.handler.RegisterRoutes(mux)
	if s.metrics.Enabled {
		mux.Handle("GET "+s.metrics.Path, observability.Handler())
	}
	return countRequests(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("🌐 Dashboard API listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve API: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("🛑 Shutting down dashboard API...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down API: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func countRequests(next *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		observability.APIRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}
