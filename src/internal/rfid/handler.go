package rfid

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"prodtrack-svc/src/internal/config"
	"prodtrack-svc/src/internal/models"
)

type Handler interface {
	Toggle(c *gin.Context)
}

type handler struct {
	config   *config.Configuration
	resolver Resolver
}

func NewHandler(cfg *config.Configuration, resolver Resolver) Handler {
	return &handler{
		config:   cfg,
		resolver: resolver,
	}
}

type toggleRequest struct {
	TagCode string `json:"tagCode" binding:"required"`
	PostID  string `json:"postId"`
}

func (h *handler) Toggle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
	defer cancel()

	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"message": "tagCode is required",
		})
		return
	}

	// A reader registered to a post may omit postId; the device claim wins
	// only when the body carries nothing.
	if req.PostID == "" {
		if devicePost, ok := c.Get("device_post_id"); ok {
			req.PostID, _ = devicePost.(string)
		}
	}

	logrus.WithFields(logrus.Fields{
		"tag_code": req.TagCode,
		"post_id":  req.PostID,
	}).Info("Badge toggle request received")

	result, err := h.resolver.Toggle(ctx, req.TagCode, req.PostID)
	if err != nil {
		respondToggleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

func respondToggleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrBadgeNotFound),
		errors.Is(err, models.ErrWorkerNotFound),
		errors.Is(err, models.ErrNoPostResolvable),
		errors.Is(err, models.ErrPostNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not found",
			"message": err.Error(),
		})
	case errors.Is(err, models.ErrWorkerInactive):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Worker inactive",
			"message": err.Error(),
		})
	case errors.Is(err, models.ErrNoProductConfigured):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "No product configured",
			"message": err.Error(),
		})
	case errors.Is(err, models.ErrDuplicateOpenSession),
		errors.Is(err, models.ErrSessionAlreadyClosed):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Conflict",
			"message": err.Error(),
		})
	default:
		logrus.WithError(err).Error("Unhandled toggle error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal error",
			"message": "An unexpected error occurred",
		})
	}
}
