package server

import (
	"chat-relay/errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"
)

// RequestID propagates the X-Request-ID header or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// GetRequestID returns the request ID set by RequestID.
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency", time.Since(start),
			"request_id", GetRequestID(c),
		}
		if status >= 500 {
			log.Error("HTTP request", attrs...)
			return
		}
		log.Debug("HTTP request", attrs...)
	}
}

// writeError aborts with the JSON error body matching err.
// Internal errors are logged and hidden from the caller.
func writeError(c *gin.Context, log *slog.Logger, err error) {
	status := errors.HTTPStatus(err)
	message := err.Error()
	if status >= 500 {
		log.Error("Request failed", "path", c.FullPath(), "request_id", GetRequestID(c), "error", err)
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"message": message,
			"type":    errors.ErrorType(status),
		},
	})
}
