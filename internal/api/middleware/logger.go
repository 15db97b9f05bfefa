// Package middleware reúne os middlewares gin do serviço.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader é devolvido em toda resposta.
const RequestIDHeader = "X-Request-ID"

// RequestLogger registra cada requisição com método, rota, status e duração.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)

		c.Next()

		logger.Info("requisição",
			zap.String("id", id),
			zap.String("metodo", c.Request.Method),
			zap.String("rota", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duracao", time.Since(start)),
			zap.String("usuario", c.GetString(ContextUsername)),
		)
	}
}
