package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/config"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity/linkstate"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity/provider"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/middleware"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/notify"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/session"
)

// knownProviders are the provider names this platform integrates with.
// A known name missing from the registry means its client registration
// is absent, which is a server configuration problem, not a 404.
var knownProviders = map[string]bool{
	"discord": true,
	"google":  true,
}

// Handler serves the identity-linking endpoints: the authorization
// initiator, the provider callback, and the small authenticated API.
type Handler struct {
	providers     *provider.Registry
	states        *linkstate.Codec
	links         *identity.LinkService
	sessions      session.Store
	auth          *middleware.AuthMiddleware
	notifications notify.Store
	cfg           config.LinkConfig
	logger        *zap.Logger
}

func NewHandler(
	registry *provider.Registry,
	states *linkstate.Codec,
	links *identity.LinkService,
	sessions session.Store,
	auth *middleware.AuthMiddleware,
	notifications notify.Store,
	cfg config.LinkConfig,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		providers:     registry,
		states:        states,
		links:         links,
		sessions:      sessions,
		auth:          auth,
		notifications: notifications,
		cfg:           cfg,
		logger:        logger,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/oauth/:provider/start", h.start)
	r.GET("/oauth/:provider/callback", h.callback)
}

func (h *Handler) RegisterAPIRoutes(api *gin.RouterGroup) {
	api.GET("/me", h.me)
	api.GET("/notifications", h.listNotifications)
	api.GET("/links", h.listLinks)
	api.DELETE("/links/:provider", h.unlink)
}

// start builds the provider authorization URL and redirects the browser
// to it. The redirect URI embedded in that URL was derived from the
// configured canonical API base at wiring time; nothing here reads the
// request's Host header.
func (h *Handler) start(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		if knownProviders[providerName] {
			h.logger.Error("oauth start for unconfigured provider",
				zap.String("provider", providerName),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "client not configured",
			})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	state := linkstate.LinkState{
		ReturnPath: h.returnPath(c),
		Intent:     identity.IntentLogin,
	}
	// A signed-in caller is attaching an identity to their own account;
	// an anonymous one is logging in.
	if userID, ok := h.auth.CurrentUser(c.Request); ok {
		state.Intent = identity.IntentLink
		state.RequestingUserID = userID
	}

	encoded, err := h.states.Encode(state)
	if err != nil {
		h.logger.Error("failed to encode link state", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to start oauth flow",
		})
		return
	}

	c.Redirect(http.StatusFound, p.AuthCodeURL(encoded))
}

// returnPath reads the caller-supplied destination, accepting the
// historical "state" parameter name alongside "return_to". Only
// site-relative paths survive; anything else falls back to the default
// landing path.
func (h *Handler) returnPath(c *gin.Context) string {
	rt := c.Query("return_to")
	if rt == "" {
		rt = c.Query("state")
	}
	if !strings.HasPrefix(rt, "/") || strings.HasPrefix(rt, "//") {
		return h.cfg.DefaultReturnPath
	}
	return rt
}
