package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-certificate-orders/internal/registry"
)

// MetricsRecorder counts events. *aws.Metrics implements it.
type MetricsRecorder interface {
	Count(ctx context.Context, name string, dims map[string]string) error
}

// RouterConfig groups dependencies for the HTTP surface.
type RouterConfig struct {
	Registry *registry.Registry
	APIKeys  []string
	Orders   OrdersConfig
	Metrics  MetricsRecorder
	Logger   logrus.FieldLogger
}

// NewRouter wires health, certificate and order routes. Everything under
// /death needs an API key and gets a per-request Resolver.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(cfg.Logger))

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	death := r.Group("/death", RequireAPIKey(cfg.APIKeys), WithResolver(cfg.Registry))
	RegisterCertificateRoutes(death, cfg.Registry, cfg.Metrics, cfg.Logger)

	orders := cfg.Orders
	if orders.Metrics == nil {
		orders.Metrics = cfg.Metrics
	}
	if orders.Logger == nil {
		orders.Logger = cfg.Logger
	}
	RegisterOrdersRoutes(death, orders)

	return r
}

func count(ctx context.Context, m MetricsRecorder, log logrus.FieldLogger, name string, dims map[string]string) {
	if m == nil {
		return
	}
	if err := m.Count(ctx, name, dims); err != nil {
		log.WithError(err).WithField("metric", name).Warn("failed to record metric")
	}
}
