package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keepsake/internal/service"
)

// AuthHandler expone el inicio y cierre de sesion de administradores.
type AuthHandler struct {
	logger *zap.Logger
	auth   *service.AuthService
}

func NewAuthHandler(logger *zap.Logger, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{logger: logger, auth: auth}
}

// Login maneja POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session, tokens, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err, "login")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":    session.UserID,
			"email": session.Email,
		},
		"session_expires_at": session.ExpiresAt,
		"tokens":             tokens,
	})
}

// Refresh maneja POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid refresh request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	tokens, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, h.logger, err, "refresh")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// Logout maneja POST /auth/logout. Requiere SessionAuthMiddleware.
func (h *AuthHandler) Logout(c *gin.Context) {
	session, ok := GetSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	if err := h.auth.SignOut(c.Request.Context(), session.ID); err != nil {
		writeError(c, h.logger, err, "logout")
		return
	}
	c.Status(http.StatusNoContent)
}
