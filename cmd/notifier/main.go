package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/example/asha-storefront/internal/infrastructure/kafka"
	"github.com/example/asha-storefront/internal/notification"
	"github.com/example/asha-storefront/pkg/config"
)

// Standalone consumer for the operator notification feed. Runs the
// same dispatcher the API embeds, in its own consumer group, and logs
// each new-order notification as it arrives.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		log.Println("[Notifier] No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Notifier] Failed to load config: %v", err)
	}
	kafkaBrokers := strings.Split(cfg.KafkaBrokers, ",")
	consumerGroup := "order-notifier"

	log.Println("[Notifier] ========================================")
	log.Println("[Notifier] Asha Storefront - Notification Service")
	log.Println("[Notifier] ========================================")
	log.Printf("[Notifier] Kafka: %v", kafkaBrokers)
	log.Printf("[Notifier] Topic: %s", cfg.KafkaTopic)
	log.Printf("[Notifier] Group: %s", consumerGroup)

	dispatcher := notification.NewDispatcher()

	sub := dispatcher.Subscribe()
	defer sub.Close()
	go func() {
		for n := range sub.C {
			log.Printf("[Notifier] New order %s: %s (unread: %d)",
				n.OrderID, n.Summary, dispatcher.UnreadCount())
		}
	}()

	consumer := kafka.NewConsumer(kafkaBrokers, cfg.KafkaTopic, consumerGroup)
	defer consumer.Close()

	go func() {
		log.Println("[Notifier] Starting event consumer...")
		if err := consumer.Consume(ctx, dispatcher.HandleEvent); err != nil {
			log.Printf("[Notifier] Consumer error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[Notifier] Shutting down...")
	cancel()
}
