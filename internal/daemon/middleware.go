package daemon

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hoist/internal/api"
	"hoist/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// authMiddleware validates bearer tokens. An empty token disables
// authentication; otherwise requests must carry "Authorization: Bearer <token>".
func authMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		auth := c.GetHeader("Authorization")
		supplied, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized", Kind: "unauthorized"})
			return
		}
		c.Next()
	}
}

// requestLogger tags each request with an id (X-Request-ID when supplied)
// and logs one line per request at a level chosen by status code.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		attrs := logging.Args(
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", status),
			logging.Duration("duration", time.Since(start)),
			logging.String("client_ip", c.ClientIP()),
		)
		reqLogger := logging.WithContext(ctx, logger)
		switch {
		case status >= http.StatusInternalServerError:
			reqLogger.Error("api request", attrs...)
		case status >= http.StatusBadRequest:
			reqLogger.Warn("api request", attrs...)
		default:
			reqLogger.Debug("api request", attrs...)
		}
	}
}
