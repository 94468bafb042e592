package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-certificate-orders/internal/registry"
)

type ctxKey string

const resolverCtxKey ctxKey = "certificate_resolver"

// RequestIDHeader carries the correlation id of a request.
const RequestIDHeader = "X-Request-Id"

// WithResolver gives every request its own Resolver, so lookups made while
// serving it are coalesced and never share cached outcomes with another request.
func WithResolver(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithValue(c.Request.Context(), resolverCtxKey, reg.NewResolver())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ResolverFor returns the request's Resolver. It panics if WithResolver is
// not installed.
func ResolverFor(ctx context.Context) *registry.Resolver {
	return ctx.Value(resolverCtxKey).(*registry.Resolver)
}

// RequireAPIKey rejects requests whose X-API-KEY header matches none of keys.
func RequireAPIKey(keys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := []byte(c.GetHeader("X-API-KEY"))
		for _, k := range keys {
			if subtle.ConstantTimeCompare(got, []byte(k)) == 1 {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}

// RequestID assigns a correlation id to requests that arrive without one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			c.Request.Header.Set(RequestIDHeader, id)
		}
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger writes one structured line per request.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"module":     "http",
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": c.GetHeader(RequestIDHeader),
			"client_ip":  c.ClientIP(),
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request failed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request served")
		}
	}
}
