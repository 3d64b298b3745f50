package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"

	"github.com/example/asha-storefront/internal/api"
	"github.com/example/asha-storefront/internal/checkout"
	"github.com/example/asha-storefront/internal/delivery"
	"github.com/example/asha-storefront/internal/domain/cart"
	"github.com/example/asha-storefront/internal/domain/order"
	"github.com/example/asha-storefront/internal/identity"
	"github.com/example/asha-storefront/internal/infrastructure/docstore"
	"github.com/example/asha-storefront/internal/infrastructure/kafka"
	"github.com/example/asha-storefront/internal/infrastructure/kvstore"
	"github.com/example/asha-storefront/internal/notification"
	"github.com/example/asha-storefront/internal/pricing"
	"github.com/example/asha-storefront/internal/query"
	"github.com/example/asha-storefront/pkg/config"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		log.Println("[API] No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[API] Failed to load config: %v", err)
	}
	kafkaBrokers := strings.Split(cfg.KafkaBrokers, ",")

	log.Println("[API] ========================================")
	log.Println("[API] Asha Storefront - Order Service")
	log.Println("[API] ========================================")
	log.Printf("[API] Kafka: %v", kafkaBrokers)
	log.Printf("[API] Topic: %s", cfg.KafkaTopic)
	log.Printf("[API] Store: %s", cfg.StoreBackend)

	// Initialize Kafka producer
	producer := kafka.NewProducer(kafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	// Initialize the document store
	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("[API] Failed to open document store: %v", err)
	}
	defer cleanup()

	// Initialize the local cart KV store
	kv, err := kvstore.NewFileStore(cfg.CartDataDir)
	if err != nil {
		log.Fatalf("[API] Failed to open cart store: %v", err)
	}
	sessionCart, err := cart.New(cart.NewKVStore(kv))
	if err != nil {
		log.Fatalf("[API] Failed to load cart: %v", err)
	}
	log.Printf("[API] Cart restored with %d item(s)", sessionCart.Count())

	// Initialize domain services
	tokens := identity.NewTokenService(
		cfg.JWTSecret,
		15*time.Minute,
		7*24*time.Hour,
	)
	accounts := identity.NewAccounts(store)
	orderSvc := order.NewService(store, producer)
	checkoutSvc := checkout.NewService(store, producer)
	workflow := delivery.NewWorkflow(store, orderSvc)
	queryHandler := query.NewHandler(store)
	dispatcher := notification.NewDispatcher()

	// Start Kafka consumer feeding the operator notification feed
	consumer := kafka.NewConsumer(kafkaBrokers, cfg.KafkaTopic, "api-notifications")
	defer consumer.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Println("[API] Starting Kafka consumer (notifications)...")
		if err := consumer.Consume(ctx, dispatcher.HandleEvent); err != nil {
			if ctx.Err() == nil {
				log.Printf("[API] Notification consumer error: %v", err)
			}
		}
	}()

	// Initialize API
	handlers := api.NewHandlers(queryHandler, checkoutSvc, pricing.NewEngine(), sessionCart)
	authHandlers := api.NewAuthHandlers(accounts, tokens)
	adminHandlers := api.NewAdminHandlers(queryHandler, orderSvc, dispatcher)
	riderHandlers := api.NewRiderHandlers(workflow)
	router := api.NewRouter(handlers, authHandlers, adminHandlers, riderHandlers, tokens)

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("[API] Server started on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[API] Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[API] Shutting down...")
	cancel() // Cancel context to stop consumer

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	wg.Wait() // Wait for consumer to finish
}

// openStore builds the configured document store backend. The
// returned cleanup closes any underlying connection.
func openStore(ctx context.Context, cfg *config.Config) (docstore.Store, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		db, err := docstore.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		log.Println("[API] Connected to PostgreSQL")
		return docstore.NewPostgres(db), func() { db.Close() }, nil
	case "dynamo":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.AWSRegion),
		)
		if err != nil {
			return nil, nil, err
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.DynamoDBEndpoint != "" {
				o.BaseEndpoint = &cfg.DynamoDBEndpoint
			}
		})
		log.Printf("[API] Using DynamoDB table %s", cfg.DynamoTableName)
		return docstore.NewDynamo(client, cfg.DynamoTableName), func() {}, nil
	default:
		log.Println("[API] Using in-memory document store")
		return docstore.NewMemory(), func() {}, nil
	}
}
