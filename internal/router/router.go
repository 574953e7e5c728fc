package router

import (
	"time"

	"receiptsync/internal/config"
	"receiptsync/internal/handler"
	"receiptsync/internal/infra"
	"receiptsync/internal/middleware"
	"receiptsync/internal/source"
	"receiptsync/internal/sync"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// New wires the HTTP surface consumed by the desktop shell and returns a
// configured Gin engine. The shell is the only expected client, so the
// surface stays deliberately small.
func New(cfg *config.Config, engine *sync.Engine, src source.ReceiptSource, rdb *redis.Client, cb *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimiter(300, time.Minute)) // 300 req/min per IP

	r.GET("/health", handler.Health(src, rdb, cb))

	syncHandler := handler.NewSyncHandler(engine)

	v1 := r.Group("/v1")
	v1.Use(middleware.AgentToken(cfg.ShellAPIToken))
	{
		v1.GET("/stats", syncHandler.GetStats)
		v1.POST("/sync", syncHandler.ForceSync)
		v1.POST("/sync/receipt/:receiptNo", syncHandler.ManualSync)
	}

	return r
}
