package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pr-poehali-dev/samp-survival-site/internal/config"
	"github.com/pr-poehali-dev/samp-survival-site/internal/logging"
	"github.com/pr-poehali-dev/samp-survival-site/internal/server"
	"github.com/pr-poehali-dev/samp-survival-site/internal/session"
	"github.com/pr-poehali-dev/samp-survival-site/internal/store"
	"github.com/pr-poehali-dev/samp-survival-site/internal/web"
	"github.com/pr-poehali-dev/samp-survival-site/pkg/gameapi"
)

func main() {
	cfg := config.DefaultServerConfig()

	configFile := flag.String("config", "", "Path to YAML config file (endpoints, console account)")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Database path (default ~/.sampsite/site.db)")
	flag.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address for session storage (empty for SQLite)")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")
	flag.Parse()

	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	// Resolve database path.
	dbPath := cfg.DBPath
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot determine home directory: %v\n", err)
			os.Exit(1)
		}
		dir := filepath.Join(home, ".sampsite")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "cannot create %s: %v\n", dir, err)
			os.Exit(1)
		}
		dbPath = filepath.Join(dir, "site.db")
	}

	// Open store and run migrations.
	st, err := store.NewSQLiteStore(dbPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate database: %v\n", err)
		os.Exit(1)
	}
	logger.Info("database ready", "path", dbPath)

	// Session storage: Redis when configured, SQLite otherwise.
	var sessStore session.Store = st
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			fmt.Fprintf(os.Stderr, "redis ping %s: %v\n", cfg.RedisAddr, err)
			os.Exit(1)
		}
		sessStore = session.NewRedisStore(rdb)
		logger.Info("session storage on redis", "addr", cfg.RedisAddr)
	}
	sessions := session.NewManager(sessStore, cfg.Session.TTL)

	api := gameapi.NewClient(gameapi.Config{
		Endpoints:  cfg.Endpoints,
		Timeout:    gameapi.DefaultTimeout,
		MaxRetries: gameapi.DefaultMaxRetries,
		RetryDelay: gameapi.DefaultRetryDelay,
	}, logger)

	pollers := server.NewPollers(api, cfg.Poll, logger)

	if cfg.Console.Enabled() {
		logger.Info("console account enabled", "username", cfg.Console.Username)
	}

	srv := server.New(cfg, st, sessions, api, pollers, logger)

	pages := web.New(st, sessions, pollers, api, logger)
	pages.RegisterRoutes(srv.Router())

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warm the caches, then keep them fresh in the background.
	pollers.Prime(ctx)
	pollers.Start(ctx)

	// Keep cached session user records in sync with the game database.
	refresher := session.NewRefresher(sessStore, api, session.RefresherConfig{
		Interval: cfg.Session.RefreshInterval,
	}, logger)
	go refresher.Start(ctx)

	go func() {
		logger.Info("server starting", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if err := refresher.Stop(); err != nil {
		logger.Error("refresher stop error", "error", err)
	}
	pollers.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
