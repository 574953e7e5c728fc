package handler

import (
	"context"
	"net/http"
	"time"

	"receiptsync/internal/infra"
	"receiptsync/internal/source"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Health reports source database and state-store connectivity plus the ledger
// circuit breaker state. Never exposes credentials or internals.
func Health(src source.ReceiptSource, rdb *redis.Client, cb *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		sourceStatus := "connected"
		if src.Ping(ctx) != nil {
			sourceStatus = "error"
		}

		redisStatus := "connected"
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		}

		status := http.StatusOK
		if sourceStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":      status == http.StatusOK,
			"vendor":  src.Vendor(),
			"source":  sourceStatus,
			"redis":   redisStatus,
			"breaker": cb.State().String(),
		})
	}
}
