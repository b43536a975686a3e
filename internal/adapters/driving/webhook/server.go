package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/logger"
)

// EventsPath is the route events are posted to.
const EventsPath = "/webhooks/notion"

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

type healthResponse struct {
	Status    string `json:"status"`
	Queued    int    `json:"queued"`
	Workers   int    `json:"workers"`
	Completed int64  `json:"completed"`
	Failed    int64  `json:"failed"`
	Dropped   int64  `json:"dropped"`
}

// Server serves the event route plus a health probe reporting queue stats.
type Server struct {
	srv        *http.Server
	dispatcher driving.Dispatcher
}

// NewServer creates a server on addr.
func NewServer(addr string, handler *Handler) *Server {
	s := &Server{dispatcher: handler.dispatcher}

	mux := http.NewServeMux()
	mux.Handle(EventsPath, handler)
	mux.HandleFunc("GET /healthz", s.health)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("webhook server listening on %s", ln.Addr())
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	stats := s.dispatcher.Stats()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:    "ok",
		Queued:    stats.Queued,
		Workers:   stats.Workers,
		Completed: stats.Completed,
		Failed:    stats.Failed,
		Dropped:   stats.Dropped,
	})
}
