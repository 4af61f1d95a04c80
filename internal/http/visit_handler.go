package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keepsake/internal/service"
)

// VisitHandler expone el recorrido del visitante: nombre, sobre, carta y mensaje.
type VisitHandler struct {
	logger *zap.Logger
	visits *service.VisitService
}

func NewVisitHandler(logger *zap.Logger, visits *service.VisitService) *VisitHandler {
	return &VisitHandler{logger: logger, visits: visits}
}

// Start maneja POST /visits.
func (h *VisitHandler) Start(c *gin.Context) {
	visit, err := h.visits.Start(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err, "start visit")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"visit": visit})
}

// Get maneja GET /visits/:id.
func (h *VisitHandler) Get(c *gin.Context) {
	visit, err := h.visits.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err, "get visit")
		return
	}
	c.JSON(http.StatusOK, gin.H{"visit": visit})
}

// SubmitName maneja POST /visits/:id/name.
func (h *VisitHandler) SubmitName(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid name request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	visit, err := h.visits.SubmitName(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		writeError(c, h.logger, err, "submit name")
		return
	}
	c.JSON(http.StatusOK, gin.H{"visit": visit})
}

// Open maneja POST /visits/:id/open.
func (h *VisitHandler) Open(c *gin.Context) {
	visit, err := h.visits.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err, "open envelope")
		return
	}
	c.JSON(http.StatusOK, gin.H{"visit": visit})
}

// Letter maneja GET /visits/:id/letter?page=N.
func (h *VisitHandler) Letter(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}

	view, err := h.visits.Letter(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		writeError(c, h.logger, err, "read letter")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recipient_name": view.RecipientName,
		"page": gin.H{
			"title":      view.Title,
			"paragraphs": view.Paragraphs,
		},
		"index":    view.Index,
		"total":    view.Total,
		"has_prev": view.HasPrev,
		"has_next": view.HasNext,
	})
}

// LeaveMessage maneja POST /visits/:id/messages.
func (h *VisitHandler) LeaveMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	msg, err := h.visits.LeaveMessage(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		writeError(c, h.logger, err, "leave message")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}
