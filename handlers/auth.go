package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neubio/neubio/internal/auth"
	"github.com/neubio/neubio/internal/tokens"
	"github.com/neubio/neubio/pkg/logger"
	"github.com/neubio/neubio/pkg/middleware"
)

// LoginRequest carries the admin password in plaintext; only its digest is
// compared.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// AuthHandler opens and closes admin sessions.
type AuthHandler struct {
	gate   *auth.Gate
	issuer *tokens.Issuer
}

func NewAuthHandler(g *auth.Gate, i *tokens.Issuer) *AuthHandler {
	return &AuthHandler{gate: g, issuer: i}
}

// Login checks the password against the stored digest and returns a signed
// access token on success.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ok, err := h.gate.AttemptLogin(c.Request.Context(), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "details": "invalid password"})
		return
	}
	access, err := h.issuer.GenerateAccessToken()
	if err != nil {
		logger.Errorf("login: sign token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "details": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": access, "expiresIn": int(h.issuer.TTL().Seconds())})
}

// Logout clears the admin-active flag and revokes the presented token.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.gate.Logout(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	if raw := c.GetString(middleware.TokenKey); raw != "" {
		if err := h.issuer.Revoke(c.Request.Context(), raw); err != nil {
			logger.Warnf("logout: revoke token: %v", err)
		}
	}
	c.Status(http.StatusNoContent)
}
