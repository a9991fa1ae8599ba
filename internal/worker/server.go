package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// DefaultConcurrency bounds how many inbound messages one worker processes at
// once. Per-conversation locks keep concurrency from reordering a single
// customer's messages.
const DefaultConcurrency = 5

// ServerOpts holds configuration options for the asynq server.
type ServerOpts struct {
	Concurrency int
}

// ServerOption configures the asynq server.
type ServerOption func(*ServerOpts)

// WithConcurrency sets how many tasks run at once.
func WithConcurrency(n int) ServerOption {
	return func(o *ServerOpts) { o.Concurrency = n }
}

// NewServer builds the asynq server for the inbound queue. Retries back off
// exponentially: 30s, 60s, 120s.
func NewServer(redisAddr string, opts ...ServerOption) *asynq.Server {
	cfg := ServerOpts{Concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(&cfg)
	}
	return asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      map[string]int{QueueInbound: 1},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(30*(1<<n)) * time.Second
			},
			Logger: slogAsynqLogger{},
		},
	)
}

// NewMux registers the inbound message handler.
func NewMux(p *Processor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeInboundMessage, p.ProcessTask)
	return mux
}

// Run starts the server and blocks until the context is cancelled.
func Run(ctx context.Context, srv *asynq.Server, mux *asynq.ServeMux) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(mux)
	}()
	select {
	case <-ctx.Done():
		slog.Info("Worker.Run: shutting down")
		srv.Shutdown()
		return nil
	case err := <-errCh:
		return err
	}
}

// slogAsynqLogger adapts asynq's logger interface onto slog.
type slogAsynqLogger struct{}

func (slogAsynqLogger) Debug(args ...interface{}) { slog.Debug(formatArgs(args)) }
func (slogAsynqLogger) Info(args ...interface{})  { slog.Info(formatArgs(args)) }
func (slogAsynqLogger) Warn(args ...interface{})  { slog.Warn(formatArgs(args)) }
func (slogAsynqLogger) Error(args ...interface{}) { slog.Error(formatArgs(args)) }
func (slogAsynqLogger) Fatal(args ...interface{}) { slog.Error(formatArgs(args)) }

func formatArgs(args []interface{}) string {
	return fmt.Sprint(args...)
}
