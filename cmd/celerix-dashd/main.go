package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-dash/internal/activity"
	"github.com/celerix-dev/celerix-dash/internal/auth"
	"github.com/celerix-dev/celerix-dash/internal/config"
	"github.com/celerix-dev/celerix-dash/internal/engine"
	"github.com/celerix-dev/celerix-dash/internal/logging"
	"github.com/celerix-dev/celerix-dash/internal/query"
	"github.com/celerix-dev/celerix-dash/internal/remote"
	"github.com/celerix-dev/celerix-dash/internal/users"
	"github.com/celerix-dev/celerix-dash/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	fs := pflag.NewFlagSet("celerix-dashd", pflag.ExitOnError)
	flags := config.NewFlags(fs)
	fs.Parse(os.Args[1:])

	cfg, err := flags.Load(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("celerix-dashd failed", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Persistence
	backend, err := engine.Open(ctx, cfg.Storage, log.Named("storage"))
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Warn("close storage", zap.Error(err))
		}
	}()

	// 2. Stores; both replay their persisted record.
	authStore, err := auth.NewStore(ctx, backend, log.Named("auth"))
	if err != nil {
		return err
	}
	logStore, err := activity.NewStore(ctx, backend, log.Named("activity"))
	if err != nil {
		return err
	}
	log.Info("stores loaded",
		zap.Bool("authenticated", authStore.IsAuthenticated()),
		zap.Int("logs", logStore.Len()))

	// 3. Remote data
	client := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout, log.Named("remote"))
	cache := query.New(cfg.Query, log.Named("query"))
	svc := users.NewService(client, cache, logStore, log.Named("users"))

	// 4. HTTP
	if cfg.HTTP.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	srv, err := web.New(web.Deps{
		Auth: authStore,
		Authenticator: &auth.MockAuthenticator{
			Email:    cfg.Auth.Email,
			Password: cfg.Auth.Password,
			Delay:    cfg.Auth.Delay,
		},
		Activity: logStore,
		Users:    svc,
		Demo:     cfg.Auth,
		UI:       cfg.UI,
		Log:      log,
	})
	if err != nil {
		return err
	}
	srv.Initialized(ctx)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("dashboard listening", zap.String("addr", cfg.HTTP.Addr), zap.String("remote", client.BaseURL()))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// 5. Graceful shutdown
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutdown signal received, draining requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}
