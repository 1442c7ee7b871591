package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinRequireAuth adapts the net/http AuthMiddleware to Gin. Auth
// decisions stay session-based and provider-agnostic.
func GinRequireAuth(auth *AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			c.Next()
		})

		handler := auth.RequireAuth(next)
		handler.ServeHTTP(c.Writer, c.Request)

		// If auth middleware already wrote the response, stop the chain.
		if c.Writer.Written() {
			c.Abort()
			return
		}
	}
}
