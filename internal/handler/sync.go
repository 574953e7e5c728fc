package handler

import (
	"context"
	"net/http"

	"receiptsync/internal/dto"
	"receiptsync/internal/sync"

	"github.com/gin-gonic/gin"
)

// SyncHandler exposes the engine's public surface to the desktop shell.
type SyncHandler struct{ engine *sync.Engine }

func NewSyncHandler(engine *sync.Engine) *SyncHandler { return &SyncHandler{engine: engine} }

// GetStats returns a read-only stats snapshot plus the current engine status.
func (h *SyncHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, dto.StatsResponse{
		Status: h.engine.Status(),
		Stats:  h.engine.Stats(),
	})
}

// ForceSync triggers a full cycle. The cycle runs in the background; a cycle
// already in flight is reported as a conflict, not queued.
func (h *SyncHandler) ForceSync(c *gin.Context) {
	if h.engine.Syncing() {
		c.JSON(http.StatusConflict, gin.H{"detail": "sync already in progress"})
		return
	}
	// Detach from the request context: the cycle outlives this HTTP call
	go h.engine.ForceSyncNow(context.Background())
	c.JSON(http.StatusAccepted, gin.H{"detail": "sync started"})
}

// ManualSync syncs exactly one receipt number through the normal
// filter/transform/deliver pipeline.
func (h *SyncHandler) ManualSync(c *gin.Context) {
	receiptNo := c.Param("receiptNo")
	if receiptNo == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "receiptNo is required"})
		return
	}

	resp := h.engine.ForceManualSync(c.Request.Context(), receiptNo)
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, resp)
}
