package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader — заголовок с идентификатором запроса
const RequestIDHeader = "X-Request-ID"

// RequestIDKey — ключ контекста Gin с идентификатором запроса
const RequestIDKey = "requestID"

// RequestID пробрасывает идентификатор запроса клиента или генерирует новый
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
