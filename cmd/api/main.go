package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/discount-campaign-service/internal/cache"
	"github.com/fairyhunter13/discount-campaign-service/internal/config"
	"github.com/fairyhunter13/discount-campaign-service/internal/event"
	"github.com/fairyhunter13/discount-campaign-service/internal/handler"
	"github.com/fairyhunter13/discount-campaign-service/internal/metrics"
	"github.com/fairyhunter13/discount-campaign-service/internal/migrations"
	"github.com/fairyhunter13/discount-campaign-service/internal/repository"
	"github.com/fairyhunter13/discount-campaign-service/internal/service"
	"github.com/fairyhunter13/discount-campaign-service/internal/validator"
	"github.com/fairyhunter13/discount-campaign-service/pkg/database"
)

func main() {
	// Money is rendered as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), cfg.DB.ConnectRetries)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Config.Load has already validated the timezone
	loc, _ := cfg.Discount.Location()
	opts := []service.Option{service.WithLocation(loc)}

	healthHandler := handler.NewHealthHandler(pool)

	var redisClient *redis.Client
	if cfg.Cache.Enabled() {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			// The cache is an optimisation; run straight off the database without it
			log.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("redis unavailable, active campaign cache disabled")
		} else {
			opts = append(opts, service.WithCache(cache.NewActiveCampaignCache(redisClient, cfg.Cache.ActiveTTL)))
			healthHandler.WithCheck("redis", handler.PingFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}))
			log.Info().Str("addr", cfg.Cache.RedisAddr).Dur("ttl", cfg.Cache.ActiveTTL).Msg("active campaign cache enabled")
		}
	}

	var publisher *event.Publisher
	if cfg.Kafka.Enabled() {
		publisher = event.NewPublisher(event.NewKafkaWriter(cfg.Kafka.Brokers), cfg.Kafka.RedemptionsTopic, cfg.Kafka.CampaignsTopic)
		opts = append(opts, service.WithPublisher(publisher))
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("event publishing enabled")
	}

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Discount Campaign Service",
		ReadTimeout:  30 * time.Second,  // Max time to read request
		WriteTimeout: 30 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Max time for keep-alive connections
		BodyLimit:    1 * 1024 * 1024,   // 1MB body limit (explicit, prevents large payloads)
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	if cfg.Metrics.Enabled {
		app.Use(metrics.Middleware())
		metrics.RegisterPoolMetrics(pool)
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	// Initialize validator with custom validations
	validate := validator.New()

	// Initialize components (layered architecture)
	campaignRepo := repository.NewCampaignRepository(pool)
	redemptionRepo := repository.NewRedemptionRepository(pool)
	campaignService := service.NewCampaignService(pool, campaignRepo, redemptionRepo, opts...)
	discountService := service.NewDiscountService(pool, campaignRepo, redemptionRepo, opts...)
	campaignHandler := handler.NewCampaignHandler(campaignService, validate)
	discountHandler := handler.NewDiscountHandler(discountService, validate)

	app.Get("/health", healthHandler.Check)

	api := app.Group("/api")

	// Campaign routes
	api.Post("/campaigns", campaignHandler.CreateCampaign)
	api.Get("/campaigns", campaignHandler.ListCampaigns)
	api.Get("/campaigns/:id", campaignHandler.GetCampaign)
	api.Put("/campaigns/:id", campaignHandler.UpdateCampaign)
	api.Patch("/campaigns/:id/status", campaignHandler.SetCampaignStatus)
	api.Delete("/campaigns/:id", campaignHandler.DeleteCampaign)

	// Discount routes
	api.Post("/discounts/available", discountHandler.AvailableDiscounts)
	api.Post("/discounts/apply", discountHandler.ApplyDiscount)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Flush pending events before the stores they describe go away
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("error closing event publisher")
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis client")
		}
	}

	// Close database pool AFTER server shutdown (even if shutdown timed out)
	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("database connections closed")
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
