package middleware

import (
	"time"

	"food-order-service/metrics"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger replaces gin's default access log with a structured logrus entry per
// request.
func Logger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := logrus.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}
		if user := CurrentUser(c); user != nil {
			fields["user_id"] = user.ID
		}
		entry := log.WithFields(fields)
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request")
		}
	}
}

// Metrics records in-flight count, status and latency per route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		done := metrics.TrackInFlight(c.Request.Method, c.FullPath())
		c.Next()
		done(c.Writer.Status())
	}
}
