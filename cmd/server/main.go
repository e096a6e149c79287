package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lychee-technology/formview/factory"
	"github.com/lychee-technology/formview/internal"
	"github.com/lychee-technology/formview/internal/config"
	"github.com/lychee-technology/formview/internal/logging"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(getEnv("FORMVIEW_CONFIG_DIR", "."))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()
	internal.RegisterTelemetryEmitter(func(_ context.Context, name string, labels map[string]string, value any) {
		sugar.Debugw("metric", "name", name, "labels", labels, "value", value)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := factory.DefaultSource(cfg)
	store, closeStore, err := factory.OpenStore(ctx, cfg, source)
	if err != nil {
		sugar.Fatalw("failed to open store", "source", source, "error", err)
	}
	defer closeStore()

	server := NewServer(internal.NewManager(store, cfg), store, cfg)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		sugar.Infow("starting server", "port", cfg.Server.Port, "source", source)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	sugar.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("server forced to shutdown", "error", err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
