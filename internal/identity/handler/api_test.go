package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity/linkstate"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity/provider"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/middleware"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/notify"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/session"
)

// newAPIEnv wires the authenticated API group the same way the app does:
// behind the session-checking middleware.
func newAPIEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := newTestEnv(t, discordFake())
	logger := zap.NewNop()
	auth := middleware.NewAuthMiddleware(env.sessions)

	links := identity.NewLinkService(env.repo, notify.NewService(env.notes, logger), nil, logger)
	h := NewHandler(
		provider.NewRegistry(discordFake()),
		linkstate.NewCodec(env.cfg.StateSecret, env.cfg.StateTTL),
		links,
		env.sessions,
		auth,
		env.notes,
		env.cfg,
		logger,
	)

	router := gin.New()
	router.HandleMethodNotAllowed = true
	api := router.Group("/api", middleware.GinRequireAuth(auth))
	h.RegisterAPIRoutes(api)

	env.router = router
	return env
}

func TestAPI_RequiresSession(t *testing.T) {
	env := newAPIEnv(t)

	for _, target := range []string{"/api/me", "/api/notifications", "/api/links"} {
		rec := env.get(t, target)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "target %s", target)
	}
}

func TestAPI_RejectsExpiredSession(t *testing.T) {
	env := newAPIEnv(t)

	id, err := session.GenerateID()
	require.NoError(t, err)
	require.NoError(t, env.sessions.Create(context.Background(), session.Session{
		SessionID: id,
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	rec := env.get(t, "/api/me", &http.Cookie{Name: session.CookieName, Value: id})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_Me(t *testing.T) {
	env := newAPIEnv(t)
	cookie := env.signIn(t, "user-7")

	rec := env.get(t, "/api/me", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "user-7", body["user_id"])
}

func TestAPI_ListLinks(t *testing.T) {
	env := newAPIEnv(t)
	cookie := env.signIn(t, "user-7")

	_, err := env.repo.CreateLink(context.Background(), "user-7", "discord", "190958668")
	require.NoError(t, err)
	_, err = env.repo.CreateLink(context.Background(), "someone-else", "discord", "555")
	require.NoError(t, err)

	rec := env.get(t, "/api/links", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Links []struct {
			Provider   string `json:"provider"`
			ExternalID string `json:"external_id"`
			LinkedAt   string `json:"linked_at"`
		} `json:"links"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Links, 1)
	assert.Equal(t, "discord", body.Links[0].Provider)
	assert.Equal(t, "190958668", body.Links[0].ExternalID)

	_, err = time.Parse(time.RFC3339, body.Links[0].LinkedAt)
	assert.NoError(t, err, "linked_at should be RFC 3339")
}

func TestAPI_ListNotifications(t *testing.T) {
	env := newAPIEnv(t)
	cookie := env.signIn(t, "user-7")

	require.NoError(t, env.notes.Insert(context.Background(), &notify.Notification{
		UserID:  "user-7",
		Kind:    notify.KindAccountLinked,
		Title:   "Account linked",
		Message: "Your discord account is now connected.",
	}))

	rec := env.get(t, "/api/notifications", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Notifications []notify.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Notifications, 1)
	assert.Equal(t, notify.KindAccountLinked, body.Notifications[0].Kind)
}

func TestAPI_Unlink(t *testing.T) {
	env := newAPIEnv(t)
	cookie := env.signIn(t, "user-7")

	_, err := env.repo.CreateLink(context.Background(), "user-7", "discord", "190958668")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/links/discord", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, env.repo.linkCount())

	// Second delete: nothing left for the provider.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/links/discord", nil)
	req.AddCookie(cookie)
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
