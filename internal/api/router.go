// Package api monta o roteador HTTP do serviço de complemento.
package api

import (
	"net/http"

	"complemento-service/internal/api/handlers"
	"complemento-service/internal/api/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterConfig reúne o que o roteador precisa além do handler.
type RouterConfig struct {
	JWTSecret      string // vazio desliga o guard
	MaxUploadBytes int64
	Logger         *zap.Logger
}

// NewRouter registra /health e as rotas /api/v1/complemento.
func NewRouter(h *handlers.ComplementoHandler, cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(cfg.Logger))
	if cfg.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = cfg.MaxUploadBytes
		router.Use(func(c *gin.Context) {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, cfg.MaxUploadBytes)
			c.Next()
		})
	}

	apiV1 := router.Group("/api/v1")
	if cfg.JWTSecret != "" {
		apiV1.Use(middleware.JWTAuth([]byte(cfg.JWTSecret)))
	}
	{
		apiV1.POST("/complemento/processar", h.HandleProcess)
		apiV1.POST("/complemento/relatorio", h.HandleReport)
		apiV1.POST("/complemento/recibos", h.HandleReceipts)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "service": "complemento-service"})
	})
	return router
}
