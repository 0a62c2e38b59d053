package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/8nevil8/telegram-channel-monitor/internal/domain"
	"github.com/8nevil8/telegram-channel-monitor/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	matcher *usecase.MatcherService
	matches domain.MatchRepository
}

// NewHandler creates a new HTTP handler. matches may be nil when persistence
// is disabled.
func NewHandler(matcher *usecase.MatcherService, matches domain.MatchRepository) *Handler {
	return &Handler{matcher: matcher, matches: matches}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "telegram-channel-monitor",
		"version": "1.0.0",
	})
}

// matchRequest is the body for ad-hoc classification requests
type matchRequest struct {
	Text string `json:"text" binding:"required"`
}

// MatchText runs the configured products against a caller-supplied text and
// returns the matches. Useful for testing product rules without posting to a
// channel.
func (h *Handler) MatchText(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  domain.ErrInvalidRequest.Error(),
			"detail": "text is required",
		})
		return
	}

	results := h.matcher.MatchMessage(req.Text)
	if results == nil {
		results = []domain.MatchResult{}
	}

	c.JSON(http.StatusOK, gin.H{
		"matches": results,
		"count":   len(results),
	})
}

// RecentMatches returns the newest persisted matches
func (h *Handler) RecentMatches(c *gin.Context) {
	if h.matches == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "match persistence is disabled",
		})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  domain.ErrInvalidRequest.Error(),
				"detail": "limit must be an integer between 1 and 500",
			})
			return
		}
		limit = parsed
	}

	records, err := h.matches.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to load matches",
		})
		return
	}
	if records == nil {
		records = []domain.MatchRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"matches": records,
		"count":   len(records),
	})
}
