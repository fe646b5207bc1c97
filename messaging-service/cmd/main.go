package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/cache"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/config"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/domain"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/handler"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/hub"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/realtime"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/repository"
	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/service"
	"github.com/quy-trach/TaskManagement-sub000/pkg/database"
	"github.com/quy-trach/TaskManagement-sub000/pkg/idgen"
	"github.com/quy-trach/TaskManagement-sub000/pkg/jwt"
	pkglog "github.com/quy-trach/TaskManagement-sub000/pkg/log"
	"github.com/quy-trach/TaskManagement-sub000/pkg/middleware"
	"github.com/quy-trach/TaskManagement-sub000/pkg/pubsub"
	"github.com/quy-trach/TaskManagement-sub000/pkg/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty || cfg.Log.Level == "debug",
		ServiceName: "messaging-service",
	})
	logger := pkglog.L()

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database using GORM
	db, err := database.New(cfg.Database.DatabaseOptions())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db, domain.Models()...); err != nil {
			logger.Fatal().Err(err).Msg("failed to auto-migrate")
		}
		logger.Info().Msg("database migration completed")
	}

	// Initialize repositories
	userRepo := repository.NewGormUserRepository(db)
	conversationRepo := repository.NewGormConversationRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)
	notificationRepo := repository.NewGormNotificationRepository(db)

	// Initialize Redis user cache
	var userCache cache.UserCache = cache.NoopUserCache{}
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisUserCache(cfg.Redis, cfg.Cache.Prefix)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		userCache = redisCache
		logger.Info().Msg("redis user cache connected")
	}
	defer userCache.Close()

	// Object storage for avatar URLs
	avatars, err := storage.New(ctx, cfg.Storage.Config)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	// Cross-instance event bus
	bus, err := pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize pubsub")
	}
	defer bus.Close()

	ids := mustGenerators(cfg.IDs)

	// Realtime fan-out
	wsHub := hub.NewHub()
	go wsHub.Run(ctx)

	relay := realtime.NewRelay(bus, wsHub, 0)
	go relay.Run(ctx)

	broadcaster := realtime.NewBroadcaster(bus, 0)

	// Initialize services
	directory := service.NewDirectory(userRepo, userCache, cfg.Cache.TTL, avatars, cfg.Storage.URLTTL)
	gate := service.NewAccessGate(conversationRepo)
	resolver := service.NewResolver(directory, conversationRepo, ids.conversation, cfg.Messaging.ResolveAttempts)
	pipeline := service.NewPipeline(gate, directory, conversationRepo, messageRepo,
		ids.message, ids.notification, broadcaster,
		service.PipelineOptions{
			MaxContentRunes: cfg.Messaging.MaxContentRunes,
			PreviewLength:   cfg.Messaging.PreviewLength,
		})
	messagingService := service.NewMessagingService(service.Deps{
		Directory:     directory,
		Gate:          gate,
		Resolver:      resolver,
		Pipeline:      pipeline,
		Unread:        service.NewUnreadAccounting(messageRepo, notificationRepo),
		Conversations: conversationRepo,
		Messages:      messageRepo,
		Notifications: notificationRepo,
		Notifier:      broadcaster,
		PageSize:      cfg.Messaging.PageSize,
	})

	// Initialize auth middleware
	tokens, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, 0)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token verifier")
	}
	authMiddleware := middleware.NewAuthMiddleware(tokens)

	// Setup Gin router
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	r.GET("/health", handler.Health)
	handler.NewHandler(messagingService, authMiddleware).RegisterRoutes(r)

	apiServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: r,
	}

	// Realtime listener
	wsHandler := realtime.NewWSHandler(realtime.WSHandlerDeps{
		Hub:               wsHub,
		Auth:              authMiddleware,
		Broadcaster:       broadcaster,
		Membership:        gate,
		ConnectionIDs:     ids.connection,
		EventIDs:          ids.event,
		WebSocket:         cfg.WebSocket,
		EnforceMembership: cfg.Realtime.EnforceMembership,
	})
	mux := http.NewServeMux()
	wsHandler.RegisterRoutes(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	realtimeServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Realtime.Host, cfg.Realtime.Port),
		Handler:     pkglog.HTTPMiddleware(logger)(mux),
		IdleTimeout: 60 * time.Second,
	}

	serve := func(name string, srv *http.Server) {
		logger.Info().Str("addr", srv.Addr).Msg(name + " listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg(name + " failed")
		}
	}
	go serve("messaging api", apiServer)
	go serve("realtime", realtimeServer)

	logger.Info().
		Str("instance_id", cfg.InstanceID).
		Str("driver", cfg.Database.Driver).
		Str("pubsub", cfg.PubSub.Driver).
		Bool("enforce_membership", cfg.Realtime.EnforceMembership).
		Msg("messaging-service started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down messaging-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api server forced to shutdown")
	}
	if err := realtimeServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("realtime server forced to shutdown")
	}

	broadcaster.Wait()
	cancel()
	<-relay.Done()

	logger.Info().Msg("messaging-service stopped")
}

type generators struct {
	message      idgen.Generator
	notification idgen.Generator
	conversation idgen.Generator
	connection   idgen.Generator
	event        idgen.Generator
}

func mustGenerators(cfg config.IDConfig) generators {
	return generators{
		message:      idgen.MustNew(cfg.Message),
		notification: idgen.MustNew(cfg.Notification),
		conversation: idgen.MustNew(cfg.Conversation),
		connection:   idgen.MustNew(cfg.Connection),
		event:        idgen.MustNew(cfg.Event),
	}
}
