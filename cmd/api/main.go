package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campusmart/internal/adapter/api/handler"
	apimiddleware "campusmart/internal/adapter/api/middleware"
	"campusmart/internal/adapter/api/router"
	"campusmart/internal/adapter/repository"
	"campusmart/internal/adapter/repository/memory"
	"campusmart/internal/infrastructure/firebase"
	"campusmart/internal/infrastructure/ratelimit"
	"campusmart/internal/infrastructure/websocket"
	"campusmart/internal/trigger"
	"campusmart/internal/usecase"
	"campusmart/pkg/config"
	"campusmart/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}
	logger.Configure(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		repos    *repository.Repositories
		verifier apimiddleware.TokenVerifier
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		logger.Warn("Using the in-memory store with development tokens; data is lost on exit")
		repos = memory.NewStore().Repositories()
		verifier = firebase.DevVerifier{}
	default:
		clients, err := firebase.NewClients(ctx, cfg)
		if err != nil {
			logger.Fatal("Failed to initialize Firebase: %v", err)
		}
		defer clients.Close()
		repos = repository.NewFirestoreRepositories(clients.Firestore)
		verifier = clients.Auth
	}

	wsManager := websocket.NewManager()
	if cfg.RedisURL != "" {
		broker, err := websocket.NewRedisBroker(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("Failed to connect to Redis: %v", err)
		}
		defer broker.Close()
		wsManager.WithBroker(broker)
		logger.Info("Websocket events fan out through Redis")
	}
	wsManager.Start(ctx)

	actionLimiter := ratelimit.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	actionLimiter.StartCleanupRoutine(ctx.Done())
	requestLimiter := ratelimit.NewRateLimiter(cfg.RateLimitPerMinute*10, cfg.RateLimitBurst*10)
	requestLimiter.StartCleanupRoutine(ctx.Done())

	chatUseCase := usecase.NewChatUseCase(repos.Chat, wsManager, actionLimiter)
	offerUseCase := usecase.NewOfferUseCase(repos.Chat, repos.Listing, chatUseCase, wsManager, actionLimiter, cfg.OfferPricePropagation)
	likeUseCase := usecase.NewLikeUseCase(repos.Like, repos.Listing, actionLimiter)
	listingUseCase := usecase.NewListingUseCase(repos.Listing)
	userUseCase := usecase.NewUserUseCase(repos.User, cfg.AllowedEmailDomain)

	wsManager.SetAuthorizer(chatUseCase.Authorize)

	// The memory store is private to this process, so its triggers run here.
	if cfg.StoreDriver == config.StoreMemory {
		runner := trigger.NewRunner(repos.Changes,
			trigger.NewOfferAccepted(repos.Listing, cfg.OfferPricePropagation),
			trigger.NewNotifyOfferAccepted(wsManager),
		)
		go func() {
			if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Trigger runner stopped: %v", err)
			}
		}()
	}

	authMiddleware := apimiddleware.NewAuthMiddleware(verifier)
	e := router.New(router.Handlers{
		Chat:      handler.NewChatHandler(chatUseCase),
		Offer:     handler.NewOfferHandler(offerUseCase),
		Like:      handler.NewLikeHandler(likeUseCase),
		Listing:   handler.NewListingHandler(listingUseCase),
		User:      handler.NewUserHandler(userUseCase),
		WebSocket: handler.NewWebSocketHandler(ctx, wsManager),
		Health:    handler.NewHealthHandler(repos.Ping),
	}, authMiddleware, router.Options{
		RequestLimiter: requestLimiter,
		MetricsEnabled: cfg.MetricsEnabled,
	})

	go func() {
		logger.Info("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown: %v", err)
	}
}
