package cancellation

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
	Cancel(c *gin.Context)
	UpdateReason(c *gin.Context)
	Delete(c *gin.Context)
	List(c *gin.Context)
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

func (h *handler) Cancel(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"message": "sessionId is required",
		})
		return
	}

	logrus.WithField("session_id", req.SessionID).Info("Cancel request received")

	record, err := h.service.Cancel(ctx, &req)
	if err != nil {
		respondCancellationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    record,
		"message": "Session cancelled successfully",
	})
}

type updateReasonRequest struct {
	Reason string `json:"reason"`
}

func (h *handler) UpdateReason(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	id := c.Param("id")

	var req updateReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	if err := h.service.UpdateReason(ctx, id, req.Reason); err != nil {
		respondCancellationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Cancellation reason updated",
	})
}

func (h *handler) Delete(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	id := c.Param("id")

	if err := h.service.Delete(ctx, id); err != nil {
		respondCancellationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Cancellation deleted",
	})
}

func (h *handler) List(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	req := &ListRequest{
		Limit:  parseIntParam(c, "limit", 20),
		Offset: parseIntParam(c, "offset", 0),
	}

	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, h.config.Location())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid date",
				"message": "Expected format YYYY-MM-DD",
			})
			return
		}
		req.Date = &parsed
	}

	response, err := h.service.List(ctx, req)
	if err != nil {
		respondCancellationError(c, err)
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

func respondCancellationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Session not found",
			"message": "No session exists with the provided ID",
		})
	case errors.Is(err, models.ErrCancellationNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Cancellation not found",
			"message": "No cancellation exists with the provided ID",
		})
	case errors.Is(err, models.ErrSessionAlreadyCancelled):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Session already cancelled",
			"message": err.Error(),
		})
	case errors.Is(err, models.ErrEmptyReason),
		errors.Is(err, models.ErrInvalidParams):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
	default:
		logrus.WithError(err).Error("Unhandled cancellation error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal error",
			"message": "An unexpected error occurred",
		})
	}
}
