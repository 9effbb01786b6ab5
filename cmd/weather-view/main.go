package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/pr-poehali-dev/weather-viewer-project/internal/config"
	"github.com/pr-poehali-dev/weather-viewer-project/internal/httpapi"
	"github.com/pr-poehali-dev/weather-viewer-project/internal/observability"
	"github.com/pr-poehali-dev/weather-viewer-project/internal/realtime"
	"github.com/pr-poehali-dev/weather-viewer-project/internal/session"
	"github.com/pr-poehali-dev/weather-viewer-project/internal/view"
)

const serviceName = "weather-view"

func main() {
	configPath := flag.String("config", os.Getenv("WEATHER_VIEW_CONFIG"), "path to an optional yaml config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	shutdownTelemetry, promHandler, tracer, err := observability.Setup(context.Background(), serviceName, cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to set up observability", "error", err)
		os.Exit(1)
	}
	defer shutdownTelemetry()

	sessions := session.NewManager(session.Options{
		View: view.Options{
			InitDelay:     cfg.InitDelay,
			SearchDelay:   cfg.SearchDelay,
			LocateTimeout: cfg.LocateTimeout,
		},
		IdleTTL:   cfg.SessionIdleTTL,
		RateLimit: rate.Limit(cfg.RateLimit.RPS),
		Burst:     cfg.RateLimit.Burst,
		OnChange:  observability.SetSessions,
	})
	if err := sessions.StartSweeper(cfg.SessionSweep); err != nil {
		slog.Error("failed to start session sweeper", "error", err)
		os.Exit(1)
	}
	defer sessions.Close()

	srv, err := httpapi.NewServer(sessions, realtime.NewHub())
	if err != nil {
		slog.Error("failed to build http api", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(observability.MetricsAndTracingMiddleware(tracer, serviceName))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Trace-ID", "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promHandler)

	srv.RegisterRoutes(r)

	// No WriteTimeout: websocket connections are long-lived.
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("weather-view started", "port", cfg.Port, "init_delay", cfg.InitDelay, "search_delay", cfg.SearchDelay)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down")
	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
