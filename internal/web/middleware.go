package web

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger logs every request once it has been served
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("Request failed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("Request rejected", fields...)
		default:
			logger.Debug("Request served", fields...)
		}
	}
}

// Recovery turns panics into a 500 page
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err any) {
		logger.Error("Panic while serving request",
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", err))
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}

// SetupChecker reports whether onboarding still has to run
type SetupChecker interface {
	NeedsOnboarding(ctx context.Context) (bool, error)
}

// SetupGuard sends every request to the onboarding wizard until a user
// exists, and keeps the wizard closed afterwards.
func SetupGuard(checker SetupChecker, logger *zap.Logger) gin.HandlerFunc {
	var done atomic.Bool

	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if strings.HasPrefix(p, "/static/") || p == "/health" {
			c.Next()
			return
		}

		onboarding := p == "/onboarding" || strings.HasPrefix(p, "/onboarding/")

		if !done.Load() {
			needs, err := checker.NeedsOnboarding(c.Request.Context())
			if err != nil {
				logger.Error("Failed to check setup state", zap.Error(err))
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			if needs {
				if !onboarding {
					c.Redirect(http.StatusSeeOther, "/onboarding")
					c.Abort()
					return
				}
				c.Next()
				return
			}
			done.Store(true)
		}

		if onboarding {
			c.Redirect(http.StatusSeeOther, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}
