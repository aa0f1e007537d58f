package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btouchard/taskhub/internal/api"
	"github.com/btouchard/taskhub/internal/auth"
	"github.com/btouchard/taskhub/internal/config"
	taskhubmcp "github.com/btouchard/taskhub/internal/mcp"
	"github.com/btouchard/taskhub/internal/notify"
	"github.com/btouchard/taskhub/internal/store"
	"github.com/btouchard/taskhub/internal/task"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "version":
		fmt.Printf("taskhub %s\n", version)
	case "check":
		cmdCheck(os.Args[2:])
	case "rotate-key":
		cmdRotateKey(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: taskhub <command> [flags]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve        Start the TaskHub server\n")
	fmt.Fprintf(os.Stderr, "  check        Validate configuration\n")
	fmt.Fprintf(os.Stderr, "  rotate-key   Replace the persisted token signing key\n")
	fmt.Fprintf(os.Stderr, "  version      Print version\n")
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args) // ExitOnError handles errors

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg)

	slog.Info("starting taskhub",
		"version", version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func cmdCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args) // ExitOnError handles errors

	_, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("configuration is valid")
}

func cmdRotateKey(args []string) {
	fs := flag.NewFlagSet("rotate-key", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args) // ExitOnError handles errors

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Auth.JWTSecret != "" {
		fmt.Fprintln(os.Stderr, "auth.jwt_secret is set; rotate it in the configuration instead")
		os.Exit(1)
	}

	if _, err := auth.RotateSigningKey(cfg.Auth.SecretDir); err != nil {
		fmt.Fprintf(os.Stderr, "rotating key: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("signing key rotated; existing sessions are now invalid")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch cfg.Server.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlers := []slog.Handler{
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
	}

	if cfg.Server.LogFile != "" {
		f, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			slog.Warn("failed to open log file, using stdout only", "path", cfg.Server.LogFile, "error", err)
		} else {
			handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
		}
	}

	logger := slog.New(slog.NewMultiHandler(handlers...))
	slog.SetDefault(logger)
}

func run(ctx context.Context, cfg *config.Config) error {
	// --- SQLite Store ---
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	slog.Info("database opened", "path", cfg.Database.Path)

	// --- Accounts ---
	key, err := auth.ResolveSigningKey(cfg.Auth.JWTSecret, cfg.Auth.SecretDir)
	if err != nil {
		return fmt.Errorf("loading signing key: %w", err)
	}
	accounts := auth.NewService(db,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		auth.NewTokens(key, cfg.Auth.TokenTTL))

	// --- Real-time delivery ---
	events := notify.NewSSEStream(cfg.Realtime.SSEBuffer, cfg.Realtime.Heartbeat)
	hub := notify.NewHub(events)

	var (
		broadcaster notify.Broadcaster = hub
		relay       *notify.RedisRelay
	)
	if cfg.Redis.Enabled {
		client, err := notify.ConnectRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() { _ = client.Close() }()

		relay = notify.NewRedisRelay(client, cfg.Redis.Channel, cfg.Redis.PublishTimeout, hub)
		broadcaster = relay
		slog.Info("redis relay enabled", "channel", cfg.Redis.Channel)
	}

	// --- Task Manager ---
	dispatcher := notify.NewDispatcher(db, cfg.Notifications.ListLimit)
	tm := task.NewManager(db, dispatcher, broadcaster)
	if cfg.Tasks.VerifyAssignee {
		tm.SetUserLookup(db)
	}

	deps := &api.Deps{
		Auth:          accounts,
		Tasks:         tm,
		Notifications: dispatcher,
		Events:        events,
		ExposeErrors:  cfg.Server.ExposeErrors,
		CookieSecure:  cfg.Server.CookieSecure,
	}

	// --- MCP Server ---
	if cfg.Realtime.MCPEnabled {
		mcpServer := taskhubmcp.NewServer(&taskhubmcp.Deps{
			Tasks:         tm,
			Notifications: dispatcher,
			Version:       version,
		})
		hub.Add(mcpServer.Notifier)
		deps.MCP = mcpServer.HTTPHandler()
	}

	// Sinks are all registered; start relaying remote events.
	if relay != nil {
		go func() {
			if err := relay.Run(ctx); err != nil {
				slog.Error("redis relay stopped", "error", err)
			}
		}()
	}

	// --- HTTP Server ---
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	// No write timeout: event streams stay open until the client leaves or
	// ctx is cancelled through BaseContext.
	srv := &http.Server{
		Addr:        addr,
		Handler:     api.NewRouter(deps),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 2 * time.Minute,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("taskhub is ready", "addr", addr, "public_url", cfg.Server.PublicURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
