package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "shooter:", err)
		SyncLogger()
		os.Exit(1)
	}
}

func run() error {
	envFile := os.Getenv(envPrefix + "ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	cfg, err := LoadConfig(envFile)
	if err != nil {
		return err
	}
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := InitLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		return err
	}
	defer SyncLogger()

	tileMap := DefaultTileMap()
	if cfg.MapFile != "" {
		if tileMap, err = LoadTileMap(cfg.MapFile); err != nil {
			return err
		}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	game := NewGame(tileMap, seed)

	opts := RouteOptions{
		ClientDir: cfg.ClientDir,
		PublicURL: cfg.PublicURL,
		SendQueue: cfg.SendQueue,
	}

	if cfg.DBPath != "" {
		db, err := OpenDB(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		analytics := NewAnalytics(db)
		defer analytics.Stop()
		analytics.Track(EvtServerStart, "", eventData(map[string]any{"seed": seed}))
		game.SetEvents(analytics)
		opts.Analytics = analytics
	}

	if cfg.AdminPassHash != "" {
		admin, err := NewAdminAuth(cfg.AdminUser, cfg.AdminPassHash, cfg.JWTSecret)
		if err != nil {
			return err
		}
		opts.Admin = admin
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := NewHub(game)
	go hub.Run(ctx)
	go game.Run(ctx, cfg.TickInterval)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           SetupRoutes(hub, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		Log.Infow("server starting",
			"addr", cfg.Addr,
			"client", cfg.ClientDir,
			"map", cfg.MapFile,
			"tick", cfg.TickInterval,
			"analytics", cfg.DBPath != "",
			"admin", opts.Admin != nil,
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
