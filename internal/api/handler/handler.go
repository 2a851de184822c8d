// Package handler exposes the conversation operations over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"supportdesk/backend/internal/metrics"
	"supportdesk/backend/internal/models"
	"supportdesk/backend/internal/storage"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Inbox is the conversation service the handlers call.
type Inbox interface {
	SupportThread(ctx context.Context, caller models.Identity) (*models.ThreadSummary, error)
	OpenThread(ctx context.Context, caller models.Identity, counterpartID string) (*models.ThreadSummary, error)
	Threads(ctx context.Context, caller models.Identity) ([]models.ThreadSummary, error)
	Messages(ctx context.Context, caller models.Identity, threadID string, afterID uint) ([]models.MessageView, error)
	Send(ctx context.Context, caller models.Identity, threadID string, req models.SendRequest) (*models.MessageView, error)
}

// Handler holds the dependencies of the HTTP routes.
type Handler struct {
	Inbox Inbox
	Auth  *Authenticator
	// Health reports whether storage is reachable. Nil means always healthy.
	Health func(ctx context.Context) error
}

func NewHandler(inbox Inbox, auth *Authenticator) *Handler {
	return &Handler{Inbox: inbox, Auth: auth}
}

// OpenThreadRequest is the body of POST /threads. The counterpart is named by
// id only; its profile comes from its own requests.
type OpenThreadRequest struct {
	ParticipantID string `json:"participant_id"`
}

// Register mounts the routes on r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/", h.Auth.Identify())
	api.GET("/support/thread", h.GetSupportThread)
	api.GET("/threads", h.ListThreads)
	api.POST("/threads", h.OpenThread)
	api.GET("/threads/:id/messages", h.ListMessages)
	api.POST("/threads/:id/messages", h.SendMessage)
}

func (h *Handler) GetSupportThread(c *gin.Context) {
	thread, err := h.Inbox.SupportThread(c.Request.Context(), callerIdentity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

func (h *Handler) ListThreads(c *gin.Context) {
	threads, err := h.Inbox.Threads(c.Request.Context(), callerIdentity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": threads})
}

func (h *Handler) OpenThread(c *gin.Context) {
	var req OpenThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	thread, err := h.Inbox.OpenThread(c.Request.Context(), callerIdentity(c), req.ParticipantID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

func (h *Handler) ListMessages(c *gin.Context) {
	var after uint
	if raw := c.Query("after"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "after must be a message id"})
			return
		}
		after = uint(n)
	}

	msgs, err := h.Inbox.Messages(c.Request.Context(), callerIdentity(c), c.Param("id"), after)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req models.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	msg, err := h.Inbox.Send(c.Request.Context(), callerIdentity(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) Healthz(c *gin.Context) {
	if h.Health != nil {
		if err := h.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps storage error codes onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	code := storage.CodeOf(err)
	status := http.StatusBadRequest
	switch code {
	case storage.CodeNotParticipant:
		status = http.StatusForbidden
	case storage.CodeThreadNotFound, storage.CodeUnknownParticipant:
		status = http.StatusNotFound
	case storage.CodeStorageUnavailable:
		status = http.StatusServiceUnavailable
	}

	reason := err.Error()
	var se *storage.Error
	if errors.As(err, &se) {
		reason = se.Reason
	}
	if status == http.StatusServiceUnavailable {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		reason = "storage unavailable"
	}

	c.JSON(status, gin.H{
		"error":     reason,
		"code":      code,
		"retryable": storage.Retryable(err),
	})
}

// RequestLogger logs one line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = log.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
