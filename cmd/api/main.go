package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/wayloft-concierge/internal/api/router"
	"github.com/wolfman30/wayloft-concierge/internal/app/bootstrap"
	appconfig "github.com/wolfman30/wayloft-concierge/internal/config"
	"github.com/wolfman30/wayloft-concierge/internal/conversation"
	httpmiddleware "github.com/wolfman30/wayloft-concierge/internal/http/middleware"
	"github.com/wolfman30/wayloft-concierge/internal/leads"
	"github.com/wolfman30/wayloft-concierge/internal/observability/tracing"
	"github.com/wolfman30/wayloft-concierge/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting wayloft concierge API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.OTelEnabled,
		ServiceName: "wayloft-concierge",
		Environment: cfg.Env,
		Endpoint:    cfg.OTelEndpoint,
		Insecure:    cfg.OTelInsecure,
		SampleRatio: cfg.OTelSampleRatio,
	}, logger)

	rt, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build runtime", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	// The form only needs the mail transport, not the chat model.
	var formSender leads.FormSender
	if rt.Dispatcher != nil {
		formSender = rt.Dispatcher
	}

	var limiter *httpmiddleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        conversation.NewHandler(rt.Engine, logger),
		LeadsHandler:       leads.NewHandler(formSender, rt.Metrics, logger),
		MetricsHandler:     rt.MetricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
		RequestTimeout:     requestTimeout(cfg),
		Tracing:            cfg.OTelEnabled,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout(cfg) + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown failed", "error", err)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// requestTimeout leaves room for a primary and a fallback model call plus
// the advisor email.
func requestTimeout(cfg *appconfig.Config) time.Duration {
	if cfg.LLMTimeout <= 0 {
		return 60 * time.Second
	}
	return 2*cfg.LLMTimeout + 10*time.Second
}
