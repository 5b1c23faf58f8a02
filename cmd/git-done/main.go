package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YusovID/git-done/internal/config"
	"github.com/YusovID/git-done/internal/github"
	"github.com/YusovID/git-done/internal/repository/postgres"
	"github.com/YusovID/git-done/internal/service"
	"github.com/YusovID/git-done/internal/session"
	myhttp "github.com/YusovID/git-done/internal/transport/http"
	"github.com/YusovID/git-done/pkg/logger/sl"
	"github.com/YusovID/git-done/pkg/logger/slogpretty"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	log := slogpretty.SetupLogger(cfg.Env)

	log.Info("starting git-done", slog.String("env", cfg.Env))

	if cfg.WebhookURL() == "" {
		log.Warn("BASE_URL is not set, webhooks will not be registered")
	}

	db, err := postgres.NewDB(ctx, cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("db close failed", sl.Err(err))
		}
	}()

	githubClient, err := github.NewClient(cfg.GitHub, log)
	if err != nil {
		return fmt.Errorf("failed to init github client: %w", err)
	}

	sessions, err := session.NewManager(cfg.Session, cfg.SecureCookies())
	if err != nil {
		return fmt.Errorf("failed to init sessions: %w", err)
	}

	userRepo := postgres.NewUserRepository(db.DB(), log)
	goalRepo := postgres.NewGoalRepository(db.DB(), log)

	services := myhttp.Services{
		Goals: service.NewGoalService(db.DB(), log, userRepo, goalRepo, goalRepo, githubClient, service.HookSettings{
			CallbackURL: cfg.WebhookURL(),
			Secret:      cfg.GitHub.WebhookSecret,
		}),
		Users:       service.NewUserService(userRepo, log),
		Completions: service.NewCompletionService(log, goalRepo, goalRepo),
		Embeds:      service.NewEmbedService(goalRepo),
	}

	oauth := github.NewOAuthProvider(cfg.GitHub, cfg.PublicBaseURL()+"/auth/callback", githubClient)

	srv := myhttp.NewServer(log, services, sessions, oauth, db, githubClient, myhttp.Options{
		PublicBaseURL: cfg.PublicBaseURL(),
		WebhookSecret: cfg.GitHub.WebhookSecret,
		RateRPS:       cfg.RateLimit.RPS,
		RateBurst:     cfg.RateLimit.Burst,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
		HealthTimeout: cfg.GitHub.HealthTimeout,
	})

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: cfg.Server.Timeout,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)

	go startServer(log, httpServer, errChan)

	select {
	case err := <-errChan:
		return fmt.Errorf("http server error: %w", err)

	case <-ctx.Done():
		log.Info("stopping server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down http server: %w", err)
	}

	return nil
}

func startServer(log *slog.Logger, httpServer *http.Server, errChan chan error) {
	defer close(errChan)

	log.Info("service started", slog.String("addr", httpServer.Addr))

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errChan <- fmt.Errorf("error listening and serving: %w", err)
	}
}
