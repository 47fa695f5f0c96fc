package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware.
const (
	ClaimsKey = "claims"
	TokenKey  = "token"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// ActiveChecker reports whether an admin session is open.
type ActiveChecker interface {
	Active(ctx context.Context) (bool, error)
}

func unauthorized(c *gin.Context, details string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "details": details})
}

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using the provided verifier
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			unauthorized(c, "missing Authorization header")
			return
		}
		// Expect 'Bearer <token>'
		var raw string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &raw); n != 1 {
			unauthorized(c, "invalid Authorization header")
			return
		}

		tok, err := ver.Verify(c.Request.Context(), raw)
		if err != nil {
			unauthorized(c, "invalid token: "+err.Error())
			return
		}

		var claims map[string]interface{}
		if err := tok.Claims(&claims); err != nil {
			unauthorized(c, "failed to parse claims")
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(TokenKey, raw)
		c.Next()
	}
}

// RequireActive rejects requests once the admin session was closed, even
// when the bearer token itself is still valid.
func RequireActive(chk ActiveChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		active, err := chk.Active(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable", "details": err.Error()})
			return
		}
		if !active {
			unauthorized(c, "admin session is not active")
			return
		}
		c.Next()
	}
}
