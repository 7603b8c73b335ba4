package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/cache"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/chat"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/config"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/coordinator"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/handler"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/hub"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/kafka"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/ledger"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/repository"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/service"
	"github.com/vaultkeeperirl-design/Beacon-sub000/pkg/database"
	"github.com/vaultkeeperirl-design/Beacon-sub000/pkg/jwt"
	pkglog "github.com/vaultkeeperirl-design/Beacon-sub000/pkg/log"
	"github.com/vaultkeeperirl-design/Beacon-sub000/pkg/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	pkglog.Init(pkglog.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "beacon"})
	logger := pkglog.L()

	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting beacon")

	// Connect to database using GORM
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, &domain.AccountModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database ready")

	accountRepo := repository.NewGormAccountRepository(db)
	if len(cfg.Accounts.Seed) > 0 {
		seed := make([]domain.Account, 0, len(cfg.Accounts.Seed))
		for _, a := range cfg.Accounts.Seed {
			seed = append(seed, domain.Account{Username: a.Username, ChannelID: a.ChannelID, Balance: a.Balance})
		}
		if err := repository.Seed(context.Background(), accountRepo, seed); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed accounts")
		}
		logger.Info().Int("accounts", len(seed)).Msg("seed accounts ensured")
	}

	tokens, err := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token validator")
	}

	// Optional owner cache
	var ownerCache cache.OwnerCache
	if cfg.Redis.Address != "" {
		rc, err := cache.NewRedisOwnerCache(cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to connect to redis, owner cache disabled")
		} else {
			ownerCache = rc
			defer rc.Close()
			logger.Info().Str("address", cfg.Redis.Address).Msg("connected to redis")
		}
	}

	// Initialize Kafka producer for broadcast events
	var events kafka.EventProducer
	if cfg.Kafka.Brokers != "" {
		p, err := kafka.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka producer, broadcast events disabled")
		} else {
			events = p
			defer p.Close()
			logger.Info().Str("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("connected to kafka")
		}
	}

	censor, err := chat.NewCensor(cfg.Chat.CensoredWords, censorRune(cfg.Chat.CensorChar))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build chat censor")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize hub
	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run(ctx)

	coord := coordinator.New(wsHub, events, coordinator.Config{
		QueueSize:   cfg.Coordinator.QueueSize,
		MaxChildren: cfg.Mesh.MaxChildren,
		Chat: chat.Config{
			RefillInterval: cfg.Chat.RefillInterval,
			MaxLength:      cfg.Chat.MaxLength,
			Censor:         censor,
		},
	})
	go coord.Run(ctx)

	owners := service.NewOwnerDirectory(accountRepo, ownerCache, cfg.Redis.OwnerCacheTTL)
	tipSvc := service.NewTipService(ledger.New(accountRepo, owners, coord), coord, events)

	// Initialize handlers
	wsHandler := handler.NewWSHandler(wsHub, coord, tokens, owners)
	httpHandler := handler.NewHandler(tipSvc, coord, middleware.NewAuthMiddleware(tokens))

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), pkglog.GinMiddleware(logger))
	httpHandler.RegisterRoutes(r)

	// /ws bypasses gin so the upgrade sees the raw writer.
	mux := http.NewServeMux()
	wsHandler.RegisterRoutes(mux)
	mux.Handle("/", r)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      pkglog.HTTPMiddleware(logger)(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("beacon listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down beacon")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	cancel()
	<-coord.Done()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info().Msg("beacon stopped")
}

func censorRune(s string) rune {
	for _, r := range s {
		return r
	}
	return '*'
}
