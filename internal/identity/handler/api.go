package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/middleware"
)

// The API routes run behind the session middleware, so a missing user
// ID here means the wiring is broken, not that the caller is anonymous.

func (h *Handler) me(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID})
}

func (h *Handler) listNotifications(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	items, err := h.notifications.ListByUser(c.Request.Context(), userID, 50)
	if err != nil {
		h.logger.Error("failed to list notifications",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

func (h *Handler) listLinks(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	links, err := h.links.Links(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list account links",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list links"})
		return
	}

	type linkView struct {
		Provider   string `json:"provider"`
		ExternalID string `json:"external_id"`
		LinkedAt   string `json:"linked_at"`
	}
	out := make([]linkView, 0, len(links))
	for _, l := range links {
		out = append(out, linkView{
			Provider:   l.Provider,
			ExternalID: l.ExternalID,
			LinkedAt:   l.LinkedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	c.JSON(http.StatusOK, gin.H{"links": out})
}

func (h *Handler) unlink(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	providerName := c.Param("provider")
	err := h.links.Unlink(c.Request.Context(), userID, providerName)
	if errors.Is(err, identity.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no link for provider"})
		return
	}
	if err != nil {
		h.logger.Error("failed to unlink provider",
			zap.String("user_id", userID),
			zap.String("provider", providerName),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unlink"})
		return
	}
	c.Status(http.StatusNoContent)
}
