package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"campusmart/internal/adapter/repository"
	"campusmart/internal/infrastructure/firebase"
	"campusmart/internal/infrastructure/websocket"
	"campusmart/internal/trigger"
	"campusmart/internal/usecase"
	"campusmart/pkg/config"
	"campusmart/pkg/logger"
)

// triggers watches offer messages in Firestore and reconciles listings and
// notifications when an offer is accepted.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}
	logger.Configure(cfg.Environment)

	if cfg.StoreDriver != config.StoreFirestore {
		logger.Fatal("The trigger worker needs STORE_DRIVER=%s; the memory store runs its triggers inside the API", config.StoreFirestore)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clients, err := firebase.NewClients(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize Firebase: %v", err)
	}
	defer clients.Close()
	repos := repository.NewFirestoreRepositories(clients.Firestore)

	// In-app notifications reach API instances through Redis; push goes through FCM.
	var notifiers usecase.Notifiers
	if cfg.RedisURL != "" {
		broker, err := websocket.NewRedisBroker(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("Failed to connect to Redis: %v", err)
		}
		defer broker.Close()
		notifiers = append(notifiers, websocket.NewManager().WithBroker(broker))
	}
	if cfg.PushEnabled {
		notifiers = append(notifiers, firebase.NewPushNotifier(clients.Messaging, repos.User))
	}

	var notifier usecase.Notifier
	if len(notifiers) > 0 {
		notifier = notifiers
	}

	runner := trigger.NewRunner(repos.Changes,
		trigger.NewOfferAccepted(repos.Listing, cfg.OfferPricePropagation),
		trigger.NewNotifyOfferAccepted(notifier),
	)
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("Trigger runner stopped: %v", err)
	}
	logger.Info("Trigger runner stopped")
}
