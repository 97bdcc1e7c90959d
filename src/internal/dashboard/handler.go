package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"prodtrack-svc/src/internal/config"
)

// SnapshotCache is the optional redis-backed cache in front of the
// aggregator. A cache miss or failure falls through to a fresh build.
type SnapshotCache interface {
	GetSnapshot(ctx context.Context) (*Snapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error
}

type Handler interface {
	GetSnapshot(c *gin.Context)
}

type handler struct {
	config     *config.Configuration
	aggregator Aggregator
	cache      SnapshotCache
}

func NewHandler(cfg *config.Configuration, aggregator Aggregator, cache SnapshotCache) Handler {
	return &handler{
		config:     cfg,
		aggregator: aggregator,
		cache:      cache,
	}
}

func (h *handler) GetSnapshot(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
	defer cancel()

	if cached, err := h.cache.GetSnapshot(ctx); err == nil && cached != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    cached,
			"message": "Dashboard snapshot retrieved successfully (from cache)",
		})
		return
	}

	snapshot, err := h.aggregator.Snapshot(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to build dashboard snapshot")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal error",
			"message": "Failed to build dashboard snapshot",
		})
		return
	}

	if err := h.cache.SaveSnapshot(ctx, snapshot); err != nil {
		logrus.WithError(err).Warn("Failed to cache dashboard snapshot")
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    snapshot,
	})
}
