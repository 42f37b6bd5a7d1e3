package main

//	@title						CentralGPT API
//	@version					0.1.0
//	@description				Multi-user AI chat service with Gemini key rotation.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/xdpzq/centralgpt/api/swagger"
	"github.com/xdpzq/centralgpt/internal/auth"
	"github.com/xdpzq/centralgpt/internal/backup"
	"github.com/xdpzq/centralgpt/internal/chat"
	"github.com/xdpzq/centralgpt/internal/config"
	"github.com/xdpzq/centralgpt/internal/dashboard"
	"github.com/xdpzq/centralgpt/internal/dispatch"
	"github.com/xdpzq/centralgpt/internal/event"
	"github.com/xdpzq/centralgpt/internal/history"
	"github.com/xdpzq/centralgpt/internal/llm"
	"github.com/xdpzq/centralgpt/internal/llm/gemini"
	"github.com/xdpzq/centralgpt/internal/server"
	"github.com/xdpzq/centralgpt/internal/settings"
	"github.com/xdpzq/centralgpt/internal/store"
	"github.com/xdpzq/centralgpt/internal/testimonial"
	"github.com/xdpzq/centralgpt/internal/vault"
	"github.com/xdpzq/centralgpt/internal/version"
	"github.com/xdpzq/centralgpt/internal/webhook"
	"github.com/xdpzq/centralgpt/internal/ws"
	"go.uber.org/zap"
)

// tokenCleanupInterval is how often expired and revoked refresh tokens are purged.
const tokenCleanupInterval = time.Hour

func main() {
	// Subcommand dispatch (before flag.Parse).
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "backup":
			runBackup(os.Args[2:])
			return
		case "restore":
			runRestore(os.Args[2:])
			return
		case "version":
			fmt.Println(version.Info())
			return
		case "genkey":
			runGenKey()
			return
		}
	}

	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
	viperCfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := config.New(viperCfg)

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("CentralGPT server starting", zap.String("version", version.Short()))

	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open database
	dbPath := cfg.GetString("database.path")
	if dbPath == "" {
		dbPath = "centralgpt.db"
	}
	db, err := store.New(dbPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		logger.Fatal("database version check failed", zap.Error(err))
	}
	logger.Info("database initialized",
		zap.String("component", "database"),
		zap.String("path", dbPath),
	)

	bus := event.NewBus(logger.Named("event"))

	// Auth
	authStore, err := auth.NewUserStore(ctx, db)
	if err != nil {
		logger.Fatal("failed to initialize auth store", zap.Error(err))
	}

	jwtSecret := cfg.GetString("auth.jwt_secret")
	if jwtSecret == "" {
		// Generate an ephemeral secret -- tokens won't survive restarts.
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			logger.Fatal("failed to generate JWT secret", zap.Error(err))
		}
		jwtSecret = hex.EncodeToString(b)
		logger.Info("using auto-generated JWT secret (set auth.jwt_secret to persist sessions across restarts)",
			zap.String("component", "auth"),
		)
	}

	accessTTL := cfg.GetDuration("auth.access_token_ttl")
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.GetDuration("auth.refresh_token_ttl")
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	tokens := auth.NewTokenService([]byte(jwtSecret), accessTTL, refreshTTL)
	authService, err := auth.NewService(authStore, tokens, cfg.GetString("auth.admin_key"), logger.Named("auth"))
	if err != nil {
		logger.Fatal("failed to initialize auth service", zap.Error(err))
	}
	authHandler := auth.NewHandler(authService, db.Ping, logger.Named("auth"))
	logger.Info("auth service initialized",
		zap.String("component", "auth"),
		zap.Duration("access_token_ttl", accessTTL),
		zap.Duration("refresh_token_ttl", refreshTTL),
	)

	// Settings, with Gemini keys sealed by the vault keyring.
	keyring, err := vault.New(ctx, db, cfg.GetString("vault.passphrase"), logger.Named("vault"))
	if err != nil {
		logger.Fatal("failed to open vault", zap.Error(err))
	}
	settingsRepo, err := settings.NewRepository(ctx, db)
	if err != nil {
		logger.Fatal("failed to initialize settings repository", zap.Error(err))
	}
	settingsService, err := settings.NewService(ctx, settingsRepo, keyring, bus, logger.Named("settings"))
	if err != nil {
		logger.Fatal("failed to load settings", zap.Error(err))
	}
	settingsHandler := settings.NewHandler(settingsService, logger.Named("settings"))

	// Dispatcher. Individual getters keep env overrides that Sub would drop.
	geminiCfg := gemini.Config{
		Model:   cfg.GetString("gemini.model"),
		BaseURL: cfg.GetString("gemini.base_url"),
		Timeout: cfg.GetDuration("gemini.timeout"),
	}
	dispatchCfg := dispatch.Config{
		Model:       geminiCfg.Model,
		Temperature: cfg.GetFloat64("gemini.temperature"),
		FallbackKey: cfg.GetString("gemini.api_key"),
	}
	factory := gemini.NewFactory(geminiCfg, logger.Named("gemini"))
	dispatcher := dispatch.New(factory,
		dispatch.WithConfig(dispatchCfg),
		dispatch.WithLogger(logger.Named("dispatch")),
	)
	dispatcher.SetCredentials(settingsService.Credentials())
	if dispatchCfg.FallbackKey != "" {
		logger.Info("fallback gemini key configured", zap.String("component", "dispatch"))
	}

	bus.Subscribe(event.TopicSettingsUpdated, func(_ context.Context, e event.Event) {
		if app, ok := e.Payload.(settings.AppConfig); ok {
			dispatcher.SetCredentials(app.GeminiKeys)
		}
	})

	llmHandler := llm.NewHandler(factory, dispatcher, dispatchCfg.Model, logger.Named("llm"))
	llmHandler.Start(ctx)

	// Chat and history
	historyStore, err := history.NewStore(ctx, db)
	if err != nil {
		logger.Fatal("failed to initialize history store", zap.Error(err))
	}
	historyLimit := cfg.GetInt("chat.history_limit")
	if historyLimit <= 0 {
		historyLimit = history.DefaultLimit
	}
	historyHandler := history.NewHandler(historyStore, historyLimit, logger.Named("history"))

	chatService := chat.NewService(dispatcher, settingsService, authService, historyStore, bus, logger.Named("chat"))
	chatHandler := chat.NewHandler(chatService, logger.Named("chat"))

	testimonialStore, err := testimonial.NewStore(ctx, db)
	if err != nil {
		logger.Fatal("failed to initialize testimonial store", zap.Error(err))
	}
	testimonialHandler := testimonial.NewHandler(testimonialStore, logger.Named("testimonial"))

	wsHandler := ws.NewHandler(tokens, chatService, bus, logger.Named("ws"))

	notifier := webhook.New(webhook.Config{
		URL:     cfg.GetString("webhook.url"),
		Timeout: cfg.GetDuration("webhook.timeout"),
		Enabled: cfg.GetBool("webhook.enabled"),
	}, logger.Named("webhook"))
	notifier.Subscribe(bus)

	go runTokenCleanup(ctx, authStore, logger.Named("auth"))

	// Create and start HTTP server
	srvCfg := server.Config{
		Host:    cfg.GetString("server.host"),
		Port:    cfg.GetInt("server.port"),
		DevMode: cfg.GetBool("server.dev_mode"),
	}
	rlCfg := server.RateLimitConfig{
		RPS:        cfg.GetFloat64("ratelimit.rps"),
		Burst:      cfg.GetInt("ratelimit.burst"),
		TrustProxy: cfg.GetBool("ratelimit.trust_proxy"),
		Routes: []server.RouteLimit{
			server.LoginLimit(cfg.GetFloat64("ratelimit.login.rps"), cfg.GetInt("ratelimit.login.burst")),
			server.ChatLimit(cfg.GetFloat64("ratelimit.chat.rps"), cfg.GetInt("ratelimit.chat.burst")),
		},
	}

	srv := server.New(server.Options{
		Addr:      srvCfg.Addr(),
		Ready:     db.Ping,
		Auth:      authHandler.Middleware(),
		Dashboard: dashboard.Handler(),
		DevMode:   srvCfg.DevMode,
		RateLimit: rlCfg,
		Routes: []server.RouteRegistrar{
			authHandler,
			settingsHandler,
			chatHandler,
			historyHandler,
			testimonialHandler,
			llmHandler,
			wsHandler,
		},
	}, logger.Named("server"))

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("CentralGPT server ready", zap.String("addr", srvCfg.Addr()))
	fmt.Fprintf(os.Stderr, "\n  CentralGPT %s is ready!\n  Open http://localhost:%d in your browser.\n\n", version.Short(), srvCfg.Port)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	bus.Wait()
	notifier.Wait()

	logger.Info("CentralGPT server stopped")
}

// runGenKey prints a fresh access key in the user key format.
func runGenKey() {
	key, err := auth.GenerateAccessKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate key: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(key)
}

// runTokenCleanup purges expired and revoked refresh tokens until ctx ends.
func runTokenCleanup(ctx context.Context, us *auth.UserStore, logger *zap.Logger) {
	ticker := time.NewTicker(tokenCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := us.CleanExpiredTokens(ctx)
			if err != nil {
				logger.Warn("refresh token cleanup failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("refresh tokens purged", zap.Int64("count", n))
			}
		}
	}
}

// runBackup archives the configured database and config file.
func runBackup(args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	output := fs.String("o", "", "archive path (default: timestamped file in the current directory)")
	_ = fs.Parse(args)

	viperCfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	archivePath := *output
	if archivePath == "" {
		archivePath = backup.DefaultArchiveName(time.Now())
	}

	if err := backup.Backup(context.Background(), viperCfg.GetString("database.path"), viperCfg.ConfigFileUsed(), archivePath); err != nil {
		fmt.Fprintf(os.Stderr, "backup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("backup written to %s\n", archivePath)
}

// runRestore unpacks a backup archive. The server must be stopped first.
func runRestore(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	dir := fs.String("dir", "", "target directory (default: the configured database directory)")
	force := fs.Bool("force", false, "overwrite existing files")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: centralgpt restore [-config path] [-dir target] [-force] <archive>")
		os.Exit(2)
	}

	target := *dir
	if target == "" {
		viperCfg, err := server.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
			os.Exit(1)
		}
		target = filepath.Dir(viperCfg.GetString("database.path"))
	}

	restored, err := backup.Restore(context.Background(), fs.Arg(0), target, *force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "restore failed: %v\n", err)
		os.Exit(1)
	}
	for _, p := range restored {
		fmt.Printf("restored %s\n", p)
	}
}
