package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keepsake/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	visitH *VisitHandler,
	authH *AuthHandler,
	adminH *AdminHandler,
	authSvc *service.AuthService,
	gate *service.AdminGate,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	visits := r.Group("/visits")
	visits.POST("", visitH.Start)
	visits.GET("/:id", visitH.Get)
	visits.POST("/:id/name", visitH.SubmitName)
	visits.POST("/:id/open", visitH.Open)
	visits.GET("/:id/letter", visitH.Letter)
	visits.POST("/:id/messages", visitH.LeaveMessage)

	auth := r.Group("/auth")
	auth.POST("/login", authH.Login)
	auth.POST("/refresh", authH.Refresh)
	auth.POST("/logout", SessionAuthMiddleware(logger, authSvc), authH.Logout)

	admin := r.Group("/admin", AdminAuthMiddleware(logger, gate))
	admin.GET("/me", adminH.Me)
	admin.GET("/messages", adminH.ListMessages)
	admin.DELETE("/messages/:id", adminH.DeleteMessage)
	admin.GET("/events", adminH.Events)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
