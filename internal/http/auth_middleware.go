package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keepsake/internal/domain"
	"keepsake/internal/service"
)

const (
	identityKey    = "admin_identity"
	sessionKey     = "auth_session"
	accessTokenKey = "access_token"
)

// AdminAuthMiddleware pasa cada peticion por el AdminGate; no guarda nada
// entre peticiones.
func AdminAuthMiddleware(logger *zap.Logger, gate *service.AdminGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if gate == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "admin gate not configured"})
			c.Abort()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		identity, err := gate.Authorize(c.Request.Context(), token)
		if err != nil {
			writeError(c, logger, err, "admin authorize")
			c.Abort()
			return
		}

		c.Set(identityKey, identity)
		c.Set(accessTokenKey, token)
		c.Next()
	}
}

// SessionAuthMiddleware exige una sesion activa, sin mirar roles.
func SessionAuthMiddleware(logger *zap.Logger, auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
			c.Abort()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		session, err := auth.CurrentSession(c.Request.Context(), token)
		if err != nil {
			writeError(c, logger, err, "session lookup")
			c.Abort()
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// GetIdentity obtiene la identidad admin desde el contexto.
func GetIdentity(c *gin.Context) (domain.Identity, bool) {
	val, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := val.(domain.Identity)
	return identity, ok
}

func GetSession(c *gin.Context) (domain.Session, bool) {
	val, ok := c.Get(sessionKey)
	if !ok {
		return domain.Session{}, false
	}
	session, ok := val.(domain.Session)
	return session, ok
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	return token, token != ""
}
