package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"review-service/internal/auth"
)

// GinRequireAuth adapts the net/http AuthMiddleware to Gin. Handlers read
// the caller with PrincipalFromContext(c.Request.Context()).
func GinRequireAuth(a *AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Bridge handler to allow net/http middleware execution
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			if p, ok := PrincipalFromContext(r.Context()); ok {
				c.Set(userIDKey, p.UserID)
			}
			c.Next()
		})

		a.RequireAuth(next).ServeHTTP(c.Writer, c.Request)

		// If auth middleware already handled the response, stop Gin chain
		if c.Writer.Written() {
			c.Abort()
			return
		}
	}
}

// RequireRole rejects callers without role with 401. It must run after
// GinRequireAuth.
func RequireRole(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFromContext(c.Request.Context())
		if !ok || p.Role != role {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
				"code":  "UNAUTHORIZED",
			})
			return
		}
		c.Next()
	}
}
