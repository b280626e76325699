package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	redisAdapter "github.com/motorline/catalog-service/internal/adapter/cache/redis"
	mongoAdapter "github.com/motorline/catalog-service/internal/adapter/mongo"
	natsAdapter "github.com/motorline/catalog-service/internal/adapter/nats"
	"github.com/motorline/catalog-service/internal/aggregate"
	"github.com/motorline/catalog-service/internal/config"
	"github.com/motorline/catalog-service/internal/platform/metrics"
	"github.com/motorline/catalog-service/internal/usecase"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	configPath := "config.yaml"
	if cp := os.Getenv("CONFIG_PATH"); cp != "" {
		configPath = cp
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapConfig := zap.NewProductionConfig()
	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("mongo_uri", cfg.Mongo.URI),
		zap.String("mongo_database", cfg.Mongo.Database),
	)

	mongoClient, err := mongoAdapter.NewMongoDBConnection(&cfg.Mongo)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongoClient.Disconnect(context.TODO()); err != nil {
			logger.Error("Failed to disconnect MongoDB", zap.Error(err))
		} else {
			logger.Info("MongoDB connection closed")
		}
	}()
	logger.Info("Successfully connected to MongoDB")

	carRepo := mongoAdapter.NewCarMongoRepository(mongoClient, cfg.Mongo.Database)
	parentRepo := mongoAdapter.NewParentMongoRepository(mongoClient, cfg.Mongo.Database)
	campaignRepo := mongoAdapter.NewCampaignMongoRepository(mongoClient, cfg.Mongo.Database)

	redisClient, err := redisAdapter.NewRedisClient(&cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	cacheRepo := redisAdapter.NewRedisCacheRepository(redisClient, logger)

	publisher, err := natsAdapter.NewNATSPublisher(&cfg.NATS, logger)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer publisher.Close()

	metricsManager := metrics.NewManager("catalog")
	go func() {
		if err := metrics.StartServer(cfg.Metrics.Port, logger, metricsManager.Registry); err != nil {
			logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	maintainer := aggregate.NewMaintainer(parentRepo, logger, metricsManager,
		cfg.Aggregate.QueueSize, cfg.Aggregate.Workers)
	defer maintainer.Close()

	carUC := usecase.NewCarUseCase(carRepo, parentRepo, maintainer, cacheRepo, publisher, metricsManager, logger)
	parentUC := usecase.NewParentUseCase(parentRepo, carRepo, publisher, logger)
	campaignUC := usecase.NewCampaignUseCase(campaignRepo, logger)
	_ = carUC
	_ = parentUC
	_ = campaignUC

	logger.Info("Catalog service setup complete")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down, draining aggregate queue")
}
