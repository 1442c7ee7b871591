package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity/linkstate"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/session"
)

// Failure markers carried to the login page. Every failure exit of the
// callback terminates in a redirect with one of these (or the provider's
// own error code); the browser never sees a raw error body.
const (
	markerNoCode         = "no_code"
	markerExchangeFailed = "exchange_failed"
	markerProfileFailed  = "profile_failed"
	markerAlreadyLinked  = "already_linked"
	markerLinkFailed     = "link_failed"
)

// callback processes the provider's response: exchange the code,
// fetch the profile, resolve the account link, then send the browser
// to its destination. Failure exits branch to the failure landing page;
// no step after a committed link can undo the outcome.
func (h *Handler) callback(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	// Provider-reported denial (user clicked cancel, consent expired...).
	// Terminal before any repository or notifier involvement.
	if errParam := c.Query("error"); errParam != "" {
		h.logger.Warn("oauth callback returned error",
			zap.String("provider", providerName),
			zap.String("error", errParam),
			zap.String("description", c.Query("error_description")),
		)
		h.failRedirect(c, errParam)
		return
	}

	code := c.Query("code")
	if code == "" {
		h.logger.Warn("oauth callback missing code and error",
			zap.String("provider", providerName),
		)
		h.failRedirect(c, markerNoCode)
		return
	}

	// State decode failure must never strand the user: continue with a
	// default destination and a plain login intent.
	state, err := h.states.Decode(c.Query("state"))
	if err != nil {
		h.logger.Warn("failed to decode link state, using defaults",
			zap.String("provider", providerName),
			zap.Error(err),
		)
		state = linkstate.LinkState{Intent: identity.IntentLogin}
	}
	returnPath := state.ReturnPath
	if returnPath == "" {
		returnPath = h.cfg.DefaultReturnPath
	}

	// Exchange the single-use code. Bounded timeout, no retries.
	exchangeCtx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.ProviderTimeout)
	token, err := p.Exchange(exchangeCtx, code)
	cancel()
	if err != nil {
		h.logger.Error("token exchange failed",
			zap.String("provider", providerName),
			zap.Error(err),
		)
		h.failRedirect(c, markerExchangeFailed)
		return
	}

	fetchCtx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.ProviderTimeout)
	profile, err := p.FetchIdentity(fetchCtx, token)
	cancel()
	if err != nil {
		h.logger.Error("profile fetch failed",
			zap.String("provider", providerName),
			zap.Error(err),
		)
		h.failRedirect(c, markerProfileFailed)
		return
	}

	result, err := h.links.ResolveLink(
		c.Request.Context(),
		profile,
		state.Intent,
		state.RequestingUserID,
	)
	if err != nil {
		if errors.Is(err, identity.ErrLinkConflict) {
			h.logger.Warn("identity already linked to another account",
				zap.String("provider", providerName),
				zap.String("requesting_user_id", state.RequestingUserID),
			)
			h.failRedirect(c, markerAlreadyLinked)
			return
		}
		h.logger.Error("account linking failed",
			zap.String("provider", providerName),
			zap.Error(err),
		)
		h.failRedirect(c, markerLinkFailed)
		return
	}

	h.establishSession(c, result.UserID)

	h.logger.Info("identity linked",
		zap.String("provider", providerName),
		zap.String("user_id", result.UserID),
		zap.Bool("created", result.Created),
	)

	c.Redirect(http.StatusFound, returnPath)
}

// establishSession issues a session so the success redirect lands
// authenticated. The link is already committed; a session failure is
// logged and the redirect proceeds, since the user can simply sign in
// again while the link stays intact.
func (h *Handler) establishSession(c *gin.Context, userID string) {
	sessionID, err := session.GenerateID()
	if err != nil {
		h.logger.Error("failed to generate session id", zap.Error(err))
		return
	}

	expiresAt := time.Now().Add(h.cfg.SessionTTL)
	err = h.sessions.Create(c.Request.Context(), session.Session{
		SessionID: sessionID,
		UserID:    userID,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		h.logger.Error("failed to persist session",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}

	session.SetCookie(c.Writer, sessionID, expiresAt, session.CookieOptions{
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) failRedirect(c *gin.Context, marker string) {
	c.Redirect(http.StatusFound, h.cfg.FailurePath+"?error="+url.QueryEscape(marker))
}
