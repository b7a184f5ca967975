package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blocksignal/blocksignal/internal/data"
	"github.com/blocksignal/blocksignal/internal/service"
)

// Handlers is the chat-platform boundary over HTTP: the platform posts
// a user's ticker request and gets back the rendered report text.
type Handlers struct {
	svc *service.Service
}

func New(svc *service.Service) *Handlers {
	return &Handlers{svc: svc}
}

func (h *Handlers) Register(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.POST("/scorecard", h.Scorecard)
		api.GET("/stats", h.Stats)
	}
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type scorecardRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Ticker string `json:"ticker" binding:"required"`
}

func (h *Handlers) Scorecard(c *gin.Context) {
	var req scorecardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and ticker are required"})
		return
	}

	report, err := h.svc.ProcessTicker(c.Request.Context(), req.UserID, req.Ticker)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": service.UserMessage(req.Ticker, err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

func (h *Handlers) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func statusFor(err error) int {
	var rl *service.RateLimitError
	switch {
	case errors.Is(err, service.ErrInvalidTicker):
		return http.StatusBadRequest
	case errors.As(err, &rl):
		return http.StatusTooManyRequests
	case errors.Is(err, data.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
