package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/session"
)

// unexported, collision-proof context key
type userIDContextKeyType struct{}

var userIDKey = userIDContextKeyType{}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// WithUserID returns a context carrying the authenticated user ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

type AuthMiddleware struct {
	Store session.Store
}

func NewAuthMiddleware(store session.Store) *AuthMiddleware {
	return &AuthMiddleware{Store: store}
}

// RequireAuth rejects requests without a valid, unexpired session and
// attaches the user ID to the request context otherwise.
func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(session.CookieName)
		if err != nil || cookie.Value == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		sessionID := cookie.Value

		sess, err := a.Store.Get(r.Context(), sessionID)
		if err != nil || sess == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if time.Now().After(sess.ExpiresAt) {
			_ = a.Store.Delete(r.Context(), sessionID)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), sess.UserID)))
	})
}

// CurrentUser resolves the session cookie without rejecting the request.
// The identity-linking start handler uses it to decide intent: a signed-in
// caller links to their own account, an anonymous one logs in.
func (a *AuthMiddleware) CurrentUser(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	sess, err := a.Store.Get(r.Context(), cookie.Value)
	if err != nil || sess == nil {
		return "", false
	}
	if time.Now().After(sess.ExpiresAt) {
		return "", false
	}
	return sess.UserID, true
}
