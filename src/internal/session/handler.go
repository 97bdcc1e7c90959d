package session

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"prodtrack-svc/src/internal/config"
	"prodtrack-svc/src/internal/models"
)

type Handler interface {
	OpenEntry(c *gin.Context)
	CloseExit(c *gin.Context)
	ResolveOpen(c *gin.Context)
	ListOpen(c *gin.Context)
	ListSessions(c *gin.Context)
}

type handler struct {
	config  *config.Configuration
	service Service
}

func NewHandler(cfg *config.Configuration, service Service) Handler {
	return &handler{
		config:  cfg,
		service: service,
	}
}

func (h *handler) OpenEntry(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	logrus.WithFields(logrus.Fields{
		"post_id":   req.PostID,
		"worker_id": req.WorkerID,
	}).Info("OpenEntry request received")

	sess, err := h.service.Open(ctx, &req)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"id":        sess.ID.Hex(),
			"startTime": sess.StartTs.Format("15:04:05"),
			"date":      sess.StartTs.Format("2006-01-02"),
			"session":   sess,
		},
		"message": "Session opened successfully",
	})
}

func (h *handler) CloseExit(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req CloseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	logrus.WithFields(logrus.Fields{
		"session_id": req.SessionID,
		"post_id":    req.PostID,
		"worker_id":  req.WorkerID,
	}).Info("CloseExit request received")

	result, err := h.service.Close(ctx, &req)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"id":              result.Session.ID.Hex(),
			"endTime":         result.Session.EndTs.Format("15:04:05"),
			"durationMinutes": result.DurationMinutes,
			"quantity":        result.Session.Quantity,
			"session":         result.Session,
		},
		"message": "Session closed successfully",
	})
}

func (h *handler) ResolveOpen(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	sessionID := c.Query("sessionId")
	postID := c.Query("postId")
	workerID := c.Query("workerId")

	sess, err := h.service.ResolveOpen(ctx, sessionID, postID, workerID)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sess,
	})
}

func (h *handler) ListOpen(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	sessions, err := h.service.ListOpen(ctx)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sessions,
		"count":   len(sessions),
	})
}

func (h *handler) ListSessions(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, h.config.Location())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid date",
				"message": "Expected format YYYY-MM-DD",
			})
			return
		}
		date = parsed
	}

	req := &ListRequest{
		Date:  date,
		Page:  parseIntParam(c, "page", 1),
		Limit: parseIntParam(c, "limit", 20),
	}

	response, err := h.service.List(ctx, req)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    response,
	})
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

func parseIntParam(c *gin.Context, param string, defaultValue int) int {
	value := c.Query(param)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"param": param,
			"value": value,
		}).Warn("Invalid integer parameter, using default")
		return defaultValue
	}
	return parsed
}

func respondSessionError(c *gin.Context, err error) {
	var dup *models.DuplicateOpenError

	switch {
	case errors.As(err, &dup):
		c.JSON(http.StatusConflict, gin.H{
			"error":             "Open session already exists",
			"message":           dup.Error(),
			"existingSessionId": dup.ExistingID,
		})
	case errors.Is(err, models.ErrDuplicateOpenSession):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Open session already exists",
			"message": err.Error(),
		})
	case errors.Is(err, models.ErrSessionAlreadyClosed):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Session already closed",
			"message": err.Error(),
		})
	case errors.Is(err, models.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Session not found",
			"message": "No matching session exists",
		})
	case errors.Is(err, models.ErrWorkerNotFound),
		errors.Is(err, models.ErrPostNotFound),
		errors.Is(err, models.ErrProductNotFound),
		errors.Is(err, models.ErrNoPostResolvable):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Reference not found",
			"message": err.Error(),
		})
	case errors.Is(err, models.ErrWorkerInactive):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Worker inactive",
			"message": err.Error(),
		})
	case errors.Is(err, models.ErrNoProductConfigured),
		errors.Is(err, models.ErrInvalidParams),
		errors.Is(err, models.ErrEmptyReason):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
	default:
		logrus.WithError(err).Error("Unhandled session error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal error",
			"message": "An unexpected error occurred",
		})
	}
}
