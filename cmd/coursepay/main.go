package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"coursepay/internal/app/cart"
	"coursepay/internal/app/checkout"
	"coursepay/internal/cache"
	"coursepay/internal/config"
	"coursepay/internal/gateway"
	kafka_handler "coursepay/internal/handler/kafka"
	"coursepay/internal/infrastructure/database"
	kafka_infra "coursepay/internal/infrastructure/kafka"
	"coursepay/internal/metrics"
	"coursepay/internal/outbox"
	"coursepay/internal/repository/cart_repo"
	"coursepay/internal/repository/catalog_repo"
	"coursepay/internal/repository/enrollment_repo"
	"coursepay/internal/repository/order_repo"
	"coursepay/internal/repository/outbox_repo"
	"coursepay/internal/repository/payment_repo"
	"coursepay/internal/router"
	"coursepay/migrations"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	appLogger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()
	appLogger.Info("Coursepay service starting...")

	if !cfg.Gateway.Configured() {
		appLogger.Warn("Payment gateway credentials are missing or placeholders; order creation will be refused",
			zap.Bool("has_key_id", cfg.Gateway.HasKeyID()),
			zap.Bool("has_secret", cfg.Gateway.HasSecret()))
	}

	ctxMain, cancelMain := context.WithCancel(context.Background())
	defer cancelMain()

	appLogger.Info("Waiting for database to be available...")
	db, err := database.ConnectWithRetry(ctxMain, database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DBName:   cfg.DB.Name,
		SSLMode:  cfg.DB.SSLMode,
	}, 10, 5*time.Second, appLogger)
	if err != nil {
		appLogger.Fatal("Could not connect to database. Exiting.", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing database connection", zap.Error(err))
		} else {
			appLogger.Info("Database connection closed.")
		}
	}()
	appLogger.Info("Successfully connected to PostgreSQL database!")

	appLogger.Info("Running database migrations...")
	if err := database.RunMigrations(migrations.FS, cfg.GetDBMigrationConnectionString(), appLogger); err != nil {
		appLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	var cartCache cache.CartCache = cache.NoopCache{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		pingCtx, cancel := context.WithTimeout(ctxMain, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			appLogger.Warn("Redis is not reachable, cart cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			cartCache = cache.NewRedisCache(redisClient)
			appLogger.Info("Cart cache connected to Redis", zap.String("addr", cfg.RedisAddr))
		}
		cancel()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	kafkaBrokers := cfg.GetKafkaBrokers()
	topicsCtx, cancelTopics := context.WithTimeout(ctxMain, 30*time.Second)
	if err := kafka_infra.EnsureTopics(topicsCtx, kafkaBrokers, []string{cfg.KafkaEnrollmentTopic}, appLogger); err != nil {
		appLogger.Fatal("Failed to ensure Kafka topics", zap.Error(err))
	}
	cancelTopics()

	kafkaProducer := kafka_infra.NewProducer(kafkaBrokers, appLogger.With(zap.String("component", "KafkaProducer")))
	defer func() {
		if err := kafkaProducer.Close(); err != nil {
			appLogger.Error("Error closing Kafka producer", zap.Error(err))
		}
	}()

	txManager := database.NewTxManager(db, appLogger)
	courseRepository := catalog_repo.NewCourseRepository()
	enrollmentRepository := enrollment_repo.NewEnrollmentRepository()
	cartRepository := cart_repo.NewCartRepository()
	orderRepository := order_repo.NewOrderRepository()
	paymentRepository := payment_repo.NewPaymentRepository()
	outboxRepository := outbox_repo.NewOutboxRepository()

	gatewayClient := gateway.NewHTTPClient(gateway.HTTPClientConfig{
		BaseURL:   cfg.Gateway.BaseURL,
		KeyID:     cfg.Gateway.KeyID,
		KeySecret: cfg.Gateway.KeySecret,
		Timeout:   cfg.Gateway.Timeout,
	}, appLogger.With(zap.String("component", "PaymentGateway")))

	checkoutService := checkout.NewCheckoutService(checkout.Dependencies{
		DB:          db,
		Tx:          txManager,
		Courses:     courseRepository,
		Enrollments: enrollmentRepository,
		Orders:      orderRepository,
		Payments:    paymentRepository,
		Outbox:      outboxRepository,
		Carts:       cartRepository,
		CartCache:   cartCache,
		Gateway:     gatewayClient,
		Verifier:    gateway.NewSignatureVerifier(cfg.Gateway.KeySecret),
		GatewayCfg:  cfg.Gateway,
		EventsTopic: cfg.KafkaEnrollmentTopic,
		Metrics:     appMetrics,
		Logger:      appLogger.With(zap.String("component", "CheckoutService")),
	})
	cartService := cart.NewCartService(
		db,
		cartRepository,
		courseRepository,
		enrollmentRepository,
		cartCache,
		appLogger.With(zap.String("component", "CartService")),
	)

	var wg sync.WaitGroup

	outboxProcessor := outbox.NewProcessor(txManager, outboxRepository, kafkaProducer, outbox.Config{
		PollInterval: cfg.OutboxPollInterval,
		PollTimeout:  cfg.OutboxPollTimeout,
		BatchSize:    cfg.OutboxBatchSize,
	}, appMetrics, appLogger.With(zap.String("component", "OutboxProcessor")))
	wg.Add(1)
	go func() {
		defer wg.Done()
		outboxProcessor.Run(ctxMain)
	}()
	appLogger.Info("Transactional Outbox sender started.")

	enrollmentConsumer := kafka_infra.NewConsumer(
		kafkaBrokers,
		cfg.KafkaConsumerGroup,
		cfg.KafkaEnrollmentTopic,
		appLogger.With(zap.String("component", "EnrollmentConsumer")),
	)
	enrollmentHandler := kafka_handler.EnrollmentCreatedMessageHandler(cartService, appLogger.With(zap.String("component", "EnrollmentHandler")))
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := enrollmentConsumer.Start(ctxMain, enrollmentHandler); err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Error("Enrollment Kafka consumer failed", zap.Error(err))
		}
		appLogger.Info("Enrollment Kafka consumer stopped.")
	}()

	handler := router.NewRouter(router.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Checkout:       checkoutService,
		Cart:           cartService,
		Metrics:        appMetrics,
		Gatherer:       registry,
		Ping:           db.PingContext,
		Logger:         appLogger,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 40 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	appLogger.Info("Coursepay service started", zap.String("address", serverAddr))

	<-sigChan
	appLogger.Info("Shutting down coursepay service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server graceful shutdown failed", zap.Error(err))
	}

	cancelMain()
	enrollmentConsumer.Stop()
	wg.Wait()
	appLogger.Info("Coursepay service stopped.")
}
