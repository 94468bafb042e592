package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type retriable interface {
	Retriable() bool
}

// isRetriable reports whether any error in err's chain says a retry may succeed.
func isRetriable(err error) bool {
	var r retriable
	return errors.As(err, &r) && r.Retriable()
}

// writeStoreError maps a store-side failure to a response. Retriable failures
// are 503 with Retry-After so clients back off and try again.
func writeStoreError(c *gin.Context, code string, err error) {
	if isRetriable(err) {
		c.Header("Retry-After", "5")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": code, "detail": err.Error(), "retriable": true})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": code, "detail": err.Error(), "retriable": false})
}
