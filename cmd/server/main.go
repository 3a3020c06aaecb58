package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lifegame/life-server-go/internal/auth"
	"github.com/lifegame/life-server-go/internal/config"
	"github.com/lifegame/life-server-go/internal/content"
	"github.com/lifegame/life-server-go/internal/game"
	"github.com/lifegame/life-server-go/internal/repository"
	"github.com/lifegame/life-server-go/internal/server"
	"github.com/lifegame/life-server-go/internal/session"
	"github.com/lifegame/life-server-go/internal/user"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	noDatabase = flag.Bool("no-db", false, "run without PostgreSQL (saving disabled)")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting life game server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Card catalog
	lib, err := loadLibrary(cfg.Game)
	if err != nil {
		logger.Fatal("failed to load card catalog", zap.Error(err))
	}
	logger.Info("card catalog loaded", zap.Int("cards", lib.CardCount()))

	factory := content.NewFactory(lib, rand.New(rand.NewSource(time.Now().UnixNano())))

	// Database
	var gameRepo *repository.GameRepository
	var statsRepo *repository.StatsRepository
	var userMgr *user.Manager
	if *noDatabase {
		logger.Warn("running without a database; accounts and saves are in-memory only")
		userMgr = user.NewManager(newMemoryUserStore(), cfg.Validation, cfg.Auth.BcryptCost, logger)
	} else {
		db, err := repository.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("failed to apply schema", zap.Error(err))
		}

		stats := db.Stats()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)

		gameRepo = repository.NewGameRepository(db)
		statsRepo = repository.NewStatsRepository(db)
		userMgr = user.NewManager(repository.NewUserRepository(db), cfg.Validation, cfg.Auth.BcryptCost, logger)
	}

	// Session manager
	sessionMgr := session.NewManager(cfg.Server.LeasePeriod, logger)
	sessionMgr.SetMaxSessions(cfg.Server.MaxSessions)
	logger.Info("session manager initialized",
		zap.Duration("lease_period", cfg.Server.LeasePeriod),
		zap.Int("max_sessions", cfg.Server.MaxSessions),
	)
	go sessionMgr.CleanupExpiredSessions(ctx)

	// Game engine
	engine := game.NewEngine(factory, logger)
	logger.Info("game engine initialized")

	// Single-use password reset tokens
	resetTokens := auth.NewTokenStore(cfg.Auth.PasswordResetTokenTTL)

	// Websocket front end
	srv := server.New(cfg.Server, cfg.Game, engine, sessionMgr, userMgr, resetTokens, gameRepo, statsRepo, logger)
	srv.SetCatalog(lib)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			serverErr <- err
		}
	}()

	logger.Info("life game server initialized",
		zap.String("version", version),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
	)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	logger.Info("shutting down gracefully...")
	cancel()
	sessionMgr.CloseAll()
	time.Sleep(100 * time.Millisecond) // let in-flight writes drain

	logger.Info("life game server stopped")
}

func loadLibrary(cfg config.GameConfig) (*content.Library, error) {
	if cfg.CatalogPath != "" {
		return content.LoadLibraryFile(cfg.CatalogPath)
	}
	return content.LoadLibrary()
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
