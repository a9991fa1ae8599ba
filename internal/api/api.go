// Package api exposes the HTTP surface of VendaZap: the Twilio WhatsApp
// webhook that feeds the inbound queue, and a health endpoint.
//
// The webhook does no processing of its own. It validates the form payload,
// builds the task, enqueues it, and acknowledges Twilio. Everything else
// happens in the worker.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/vendazap/vendazap/internal/worker"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Enqueuer is the slice of the worker enqueuer the webhook needs.
type Enqueuer interface {
	EnqueueInbound(ctx context.Context, msg worker.InboundMessage) error
}

// Opts holds configuration options for the API server.
type Opts struct {
	// Addr is the listen address. Defaults to DefaultAddr.
	Addr string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server handles webhook ingestion and health checks.
type Server struct {
	enqueuer Enqueuer
	addr     string
}

// NewServer creates the API server around the given enqueuer.
func NewServer(enqueuer Enqueuer, opts ...Option) *Server {
	var o Opts
	for _, opt := range opts {
		opt(&o)
	}
	if o.Addr == "" {
		o.Addr = DefaultAddr
	}
	return &Server{enqueuer: enqueuer, addr: o.Addr}
}

// Handler returns the routed HTTP handler, exposed separately so tests can
// drive it through httptest without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook/twilio", s.twilioWebhookHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run serves HTTP until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}
