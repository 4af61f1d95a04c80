package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keepsake/internal/service"
)

// AdminHandler expone la moderacion. Todas sus rutas van detras de
// AdminAuthMiddleware.
type AdminHandler struct {
	logger     *zap.Logger
	gate       *service.AdminGate
	moderation *service.ModerationService
	keepAlive  time.Duration
}

func NewAdminHandler(logger *zap.Logger, gate *service.AdminGate, moderation *service.ModerationService) *AdminHandler {
	return &AdminHandler{
		logger:     logger,
		gate:       gate,
		moderation: moderation,
		keepAlive:  15 * time.Second,
	}
}

// Me maneja GET /admin/me.
func (h *AdminHandler) Me(c *gin.Context) {
	identity, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": identity})
}

// ListMessages maneja GET /admin/messages.
func (h *AdminHandler) ListMessages(c *gin.Context) {
	msgs, err := h.moderation.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err, "list messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "count": len(msgs)})
}

// DeleteMessage maneja DELETE /admin/messages/:id.
func (h *AdminHandler) DeleteMessage(c *gin.Context) {
	if err := h.moderation.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err, "delete message")
		return
	}
	c.Status(http.StatusNoContent)
}

// Events maneja GET /admin/events: un stream SSE que emite
// session_invalidated y se cierra cuando la sesion deja de ser valida.
func (h *AdminHandler) Events(c *gin.Context) {
	identity, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	token := c.GetString(accessTokenKey)

	sub := h.gate.Subscribe(identity.SessionID)
	defer sub.Close()

	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Status(http.StatusOK)
	c.SSEvent("ready", gin.H{"session_id": identity.SessionID})
	c.Writer.Flush()

	ctx := c.Request.Context()
	// La sesion pudo cerrarse entre el middleware y Subscribe.
	if reason, invalid := h.recheck(ctx, token); invalid {
		c.SSEvent("session_invalidated", gin.H{"reason": reason})
		c.Writer.Flush()
		return
	}
	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n") //nolint:errcheck
			c.Writer.Flush()
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			h.logger.Info("session event", zap.String("type", string(ev.Type)), zap.String("session_id", ev.SessionID))
			reason, invalid := h.recheck(ctx, token)
			if !invalid {
				continue
			}
			c.SSEvent("session_invalidated", gin.H{"reason": reason})
			c.Writer.Flush()
			return
		}
	}
}

func (h *AdminHandler) recheck(ctx context.Context, token string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := h.gate.Authorize(ctx, token)
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, service.ErrForbidden):
		return "forbidden", true
	case errors.Is(err, service.ErrUnauthenticated):
		return "unauthenticated", true
	}
	// Un fallo del proveedor no invalida la sesion.
	h.logger.Warn("session recheck failed", zap.Error(err))
	return "", false
}
