package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/tmarkovic/slotcal/internal/api"
	"github.com/tmarkovic/slotcal/internal/auth"
	"github.com/tmarkovic/slotcal/internal/config"
	"github.com/tmarkovic/slotcal/internal/event"
	"github.com/tmarkovic/slotcal/internal/metrics"
	"github.com/tmarkovic/slotcal/internal/ratelimit"
	"github.com/tmarkovic/slotcal/internal/session"
	"github.com/tmarkovic/slotcal/internal/slot"
	"github.com/tmarkovic/slotcal/internal/user"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the slotcal server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("connected to database")

	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		ResetSecret:   cfg.Auth.ResetSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
		ResetTTL:      cfg.Auth.ResetTTL,
	})
	if err != nil {
		return err
	}

	userStore := user.NewStore(pool)
	eventStore := event.NewStore(pool)
	slotStore := slot.NewStore(pool)
	engine := slot.NewEngine(slotStore, eventStore)

	registry := session.NewRegistry(session.NewStore(pool))
	if err := registry.Init(ctx); err != nil {
		return err
	}
	slog.Info("session registry loaded", "sessions", registry.Len())

	m := metrics.New()
	m.RegisterDBPoolCollector(func() (total, idle, acquired int32) {
		st := pool.Stat()
		return st.TotalConns(), st.IdleConns(), st.AcquiredConns()
	})
	m.SetSessionsLive(registry.Len())

	sweeper := session.NewSweeper(registry, cfg.Sessions.SweepInterval, func(removed int) {
		m.AddSessionsSwept(removed)
		m.SetSessionsLive(registry.Len())
	})
	go sweeper.Start(ctx)

	limiter := ratelimit.New(cfg.RateLimit.AuthRequests, cfg.RateLimit.Window)

	router := api.NewRouter(api.RouterDeps{
		Users:          userStore,
		Events:         eventStore,
		Slots:          slotStore,
		Engine:         engine,
		Sessions:       registry,
		Issuer:         issuer,
		Limiter:        limiter,
		Metrics:        m,
		DB:             pool,
		RefreshTTL:     cfg.Auth.RefreshTTL,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	sweeper.Stop()

	return srv.Shutdown(shutdownCtx)
}
