package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server exposes /metrics for a long-running scanner session.
type Server struct {
	rec    *Recorder
	router *mux.Router
	logger *zap.Logger
}

func NewServer(rec *Recorder, logger *zap.Logger) *Server {
	s := &Server{rec: rec, router: mux.NewRouter(), logger: logger}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Handle("/metrics", s.rec.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
}

func (s *Server) Router() http.Handler { return s.router }

// Start listens on addr until ctx is cancelled. Listen errors are logged.
func (s *Server) Start(ctx context.Context, addr string) {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		s.logger.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server error", zap.Error(err))
		}
	}()
}
