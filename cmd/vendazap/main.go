// VendaZap is a WhatsApp conversational assistant for small merchants. One
// process serves both the Twilio webhook and the asynq worker pool that runs
// the conversation flows.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/vendazap/vendazap/internal/api"
	"github.com/vendazap/vendazap/internal/flow"
	"github.com/vendazap/vendazap/internal/messaging"
	"github.com/vendazap/vendazap/internal/store"
	"github.com/vendazap/vendazap/internal/transcribe"
	"github.com/vendazap/vendazap/internal/twiliowhatsapp"
	"github.com/vendazap/vendazap/internal/util"
	"github.com/vendazap/vendazap/internal/worker"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for VendaZap state data
	DefaultStateDir = "/var/lib/vendazap"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "vendazap.db"
	// DefaultRedisAddr is the default Redis address for the task queue
	DefaultRedisAddr = "127.0.0.1:6379"
)

func main() {
	initializeLogger()

	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	var (
		dbDSN     = flag.String("db-dsn", util.EnvOrDefault("DATABASE_URL", ""), "database DSN (Postgres URL or SQLite path)")
		redisAddr = flag.String("redis-addr", util.EnvOrDefault("REDIS_ADDR", DefaultRedisAddr), "Redis address for the task queue")
		apiAddr   = flag.String("api-addr", util.EnvOrDefault("API_ADDR", api.DefaultAddr), "HTTP listen address")
		stateDir  = flag.String("state-dir", util.EnvOrDefault("VENDAZAP_STATE_DIR", DefaultStateDir), "directory for SQLite state when no DSN is given")
	)
	flag.Parse()

	if *dbDSN == "" {
		*dbDSN = filepath.Join(*stateDir, DefaultDBFileName)
		slog.Debug("No DATABASE_URL set, using SQLite in state dir", "dsn", *dbDSN)
	}

	st, err := openStore(*dbDSN)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	twilioClient, err := twiliowhatsapp.NewClient()
	if err != nil {
		slog.Error("Failed to create Twilio client", "error", err)
		os.Exit(1)
	}
	messenger := messaging.NewTwilioService(twilioClient)
	defer messenger.Stop()

	transcriber, err := transcribe.NewWhisper("")
	if err != nil {
		slog.Error("Failed to create transcriber", "error", err)
		os.Exit(1)
	}

	processor := worker.NewProcessor(st, flow.NewRouter(), messenger, transcriber, twilioClient)
	enqueuer := worker.NewEnqueuer(*redisAddr)
	defer enqueuer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go worker.NewSweeper(st,
		worker.WithAbandonAfter(util.ParseDurationEnv("CONVERSATION_ABANDON_AFTER", worker.DefaultAbandonAfter)),
		worker.WithSweepInterval(util.ParseDurationEnv("SWEEP_INTERVAL", worker.DefaultSweepInterval)),
	).Run(ctx)

	apiServer := api.NewServer(enqueuer, api.WithAddr(*apiAddr))
	slog.Info("VendaZap starting", "api_addr", *apiAddr, "redis_addr", *redisAddr, "db_type", store.DetectDSNType(*dbDSN))

	concurrency := util.ParseIntEnv("WORKER_CONCURRENCY", worker.DefaultConcurrency)
	errCh := make(chan error, 2)
	go func() {
		errCh <- worker.Run(ctx, worker.NewServer(*redisAddr, worker.WithConcurrency(concurrency)), worker.NewMux(processor))
	}()
	go func() {
		errCh <- apiServer.Run(ctx)
	}()

	// The first loop to stop takes the other one down with it. On a signal
	// both return nil; on a failure the error exits the process.
	err = <-errCh
	stop()
	if err != nil {
		slog.Error("VendaZap failed", "error", err)
		os.Exit(1)
	}
	if err := <-errCh; err != nil {
		slog.Error("VendaZap failed during shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("VendaZap exited successfully")
}

// initializeLogger sets up structured logging on stdout.
func initializeLogger() {
	level := slog.LevelInfo
	if util.EnvOrDefault("LOG_LEVEL", "") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// openStore picks the backend from the DSN shape.
func openStore(dsn string) (store.Store, error) {
	if store.DetectDSNType(dsn) == "postgres" {
		return store.NewPostgresStore(store.WithPostgresDSN(dsn))
	}
	return store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
}
