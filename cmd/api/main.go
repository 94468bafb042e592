package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-certificate-orders/internal/aws"
	"github.com/imrishuroy/go-certificate-orders/internal/config"
	"github.com/imrishuroy/go-certificate-orders/internal/database"
	"github.com/imrishuroy/go-certificate-orders/internal/handlers"
	"github.com/imrishuroy/go-certificate-orders/internal/idempotency"
	"github.com/imrishuroy/go-certificate-orders/internal/locks"
	"github.com/imrishuroy/go-certificate-orders/internal/orders"
	"github.com/imrishuroy/go-certificate-orders/internal/registry"
)

// Without an orders database, local order keys start here.
const localFirstOrderKey = 50

func newRegistry(cfg *config.Config, logger logrus.FieldLogger) (*registry.Registry, error) {
	opts := []registry.Option{
		registry.WithBatchWait(cfg.LookupBatchWait),
		registry.WithGroupConcurrency(cfg.LookupGroupConcurrency),
	}

	if !cfg.RegistryDB.Configured() {
		logger.WithField("fixture", cfg.FixturePath).Warn("no registry database configured; serving fixture data")
		store, err := registry.LoadFixtureStore(cfg.FixturePath)
		if err != nil {
			return nil, err
		}
		return registry.New(store, logger, opts...), nil
	}

	db, err := database.Open(cfg.RegistryDB, logger)
	if err != nil {
		return nil, err
	}
	return registry.New(registry.NewSQLStore(db), logger, opts...), nil
}

func newOrderStore(cfg *config.Config, logger logrus.FieldLogger) (orders.Store, error) {
	if !cfg.OrdersDB.Configured() {
		logger.Warn("no orders database configured; recording orders in memory")
		return orders.NewMemoryStore(localFirstOrderKey), nil
	}
	db, err := database.Open(cfg.OrdersDB, logger)
	if err != nil {
		return nil, err
	}
	return orders.NewSQLStore(db), nil
}

func setupRouter(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*gin.Engine, error) {
	reg, err := newRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}
	orderStore, err := newOrderStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		return nil, err
	}

	ordersCfg := handlers.OrdersConfig{
		Submitter: orders.NewSubmitter(orderStore, logger),
		Logger:    logger,
	}
	if cfg.IdempotencyTable != "" {
		ordersCfg.Ledger = idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.LedgerTTL)
	}
	if publisher := aws.NewPublisher(clients.SQS, cfg.ReconciliationQueueURL); publisher.Enabled() {
		ordersCfg.Publisher = publisher
	}
	if cfg.RedisAddr != "" {
		rdb, err := locks.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			// the ledger still rejects concurrent attempts
			logger.WithError(err).Warn("redis unavailable; proceeding without submission lock")
		} else {
			ordersCfg.Locker = locks.NewRedisLocker(rdb, cfg.SubmissionLockTTL, logger)
		}
	}

	routerCfg := handlers.RouterConfig{
		Registry: reg,
		APIKeys:  cfg.APIKeys,
		Orders:   ordersCfg,
		Logger:   logger,
	}
	if cfg.MetricsEnabled {
		routerCfg.Metrics = aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace)
	}
	return handlers.NewRouter(routerCfg), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)

	r, err := setupRouter(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("failed to init api: %v", err)
	}

	// if RUN_LOCAL is true, run local HTTP server for development.
	if cfg.RunLocal {
		logger.WithField("addr", cfg.HTTPAddr).Info("running local server")
		if err := r.Run(cfg.HTTPAddr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
