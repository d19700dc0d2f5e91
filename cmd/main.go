package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"tastymeals/internal/auth"
	"tastymeals/internal/cache"
	"tastymeals/internal/config"
	"tastymeals/internal/database"
	"tastymeals/internal/httpapi"
	"tastymeals/internal/logger"
	"tastymeals/internal/messaging"
	"tastymeals/internal/models"
	"tastymeals/internal/services/cart"
	"tastymeals/internal/services/catalog"
	"tastymeals/internal/services/loyalty"
	"tastymeals/internal/services/notification"
	"tastymeals/internal/services/order"
	"tastymeals/internal/services/payment"
	"tastymeals/internal/services/reports"
	"tastymeals/internal/services/review"
)

func main() {
	var (
		mode       = flag.String("mode", "", "Service mode (api-server, payment-worker, notification-worker)")
		configPath = flag.String("config", "config.yaml", "Path to config file")
	)
	flag.Parse()

	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(*mode)
	requestID := logger.GenerateRequestID()

	log.Info("service_started", fmt.Sprintf("Starting %s", *mode), requestID, map[string]interface{}{
		"mode": *mode,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
		cancel()
	}()

	switch *mode {
	case "api-server":
		err = runAPIServer(ctx, cfg, log)
	case "payment-worker":
		err = runPaymentWorker(ctx, cfg, log)
	case "notification-worker":
		err = runNotificationWorker(ctx, cfg, log)
	default:
		log.Error("validation_failed", fmt.Sprintf("Unknown mode: %s", *mode), requestID, nil, nil)
		os.Exit(1)
	}
	if err != nil {
		log.Error("service_failed", fmt.Sprintf("%s failed", *mode), requestID, err, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

func runAPIServer(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	log.Info("db_connected", "Connected to PostgreSQL database", requestID, nil)

	if err := db.RunMigrations(ctx, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()
	log.Info("rabbitmq_connected", "Connected to RabbitMQ", requestID, nil)

	publisher := messaging.NewPublisher(conn, log)

	// The catalog degrades to direct DB reads without Redis, so a cache
	// outage keeps the API up.
	catalogCache, err := cache.New(ctx, cfg.RedisAddr(), cfg.CatalogTTL(), log)
	if err != nil {
		log.Error("cache_unavailable", "Redis unreachable, catalog caching disabled", requestID, err, nil)
		catalogCache = nil
	} else {
		defer catalogCache.Close()
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL())
	authHandler := auth.NewHandler(auth.NewRepository(db), tokens, log)

	catalogHandler := catalog.NewHandler(
		catalog.NewService(catalog.NewRepository(db), catalogCache, log, cfg.Server.PublicURL), log)
	cartHandler := cart.NewHandler(cart.NewService(cart.NewRepository(db), log), log)
	orderHandler := order.NewHandler(order.NewService(order.NewRepository(db), publisher, log), log)

	paymentService := payment.NewService(
		payment.NewRepository(db), payment.NewDarajaGateway(cfg, log), publisher, log)
	paymentHandler := payment.NewHandler(paymentService, publisher, cfg.Gateway.CallbackSecret, log)

	loyaltyHandler := loyalty.NewHandler(loyalty.NewService(loyalty.NewRepository(db), publisher, log), log)
	reviewHandler := review.NewHandler(review.NewService(review.NewRepository(db), log), log)
	notificationHandler := notification.NewHandler(
		notification.NewService(notification.NewRepository(db), log), log)
	reportsHandler := reports.NewHandler(reports.NewService(reports.NewRepository(db), log), log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(httpapi.RequestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/token", authHandler.Token)
		r.Post("/auth/token/refresh", authHandler.Refresh)

		// Gateway callback authenticates with a shared secret header,
		// not a bearer token.
		r.Post("/payments/callback", paymentHandler.Callback)

		r.Route("/customer", func(r chi.Router) {
			r.Use(tokens.Authenticate)
			r.Use(auth.RequireRole(models.RoleCustomer))
			catalogHandler.CustomerRoutes(r)
			cartHandler.Routes(r)
			orderHandler.CustomerRoutes(r)
			paymentHandler.CustomerRoutes(r)
			loyaltyHandler.CustomerRoutes(r)
			reviewHandler.Routes(r)
			notificationHandler.Routes(r)
		})

		r.Route("/cafeadmin", func(r chi.Router) {
			r.Use(tokens.Authenticate)
			r.Use(auth.RequireRole(models.RoleCafeAdmin))
			catalogHandler.AdminRoutes(r)
			orderHandler.AdminRoutes(r)
			loyaltyHandler.AdminRoutes(r)
			notificationHandler.Routes(r)
			reportsHandler.Routes(r)
		})
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info("server_listening", fmt.Sprintf("API server listening on %s", server.Addr), requestID, map[string]interface{}{
			"addr": server.Addr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server_failed", "HTTP server failed", requestID, err, nil)
		}
	}()

	<-ctx.Done()

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}

func runPaymentWorker(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()
	log.Info("rabbitmq_connected", "Connected to RabbitMQ", requestID, nil)

	publisher := messaging.NewPublisher(conn, log)
	service := payment.NewService(
		payment.NewRepository(db), payment.NewDarajaGateway(cfg, log), publisher, log)

	worker := payment.NewWorker(service, conn, log)
	defer worker.Close()

	return worker.Run(ctx)
}

func runNotificationWorker(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()
	log.Info("rabbitmq_connected", "Connected to RabbitMQ", requestID, nil)

	service := notification.NewService(notification.NewRepository(db), log)

	worker := notification.NewWorker(service, conn, log)
	defer worker.Close()

	return worker.Run(ctx)
}
