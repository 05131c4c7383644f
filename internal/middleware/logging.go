package middleware

import (
	"time"

	"github.com/airmencoders/tron-common-api-sub001/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const requestIDKey = "requestID"

// RequestLogger assigns each request an id and logs method, path,
// status and latency on completion.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Locals(requestIDKey, requestID)
		c.Set("X-Request-ID", requestID)

		start := time.Now()
		err := c.Next()

		logger.Info("http_request", map[string]interface{}{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.IP(),
			"request_id": requestID,
		})
		return err
	}
}

func GetRequestID(c *fiber.Ctx) string {
	if value, ok := c.Locals(requestIDKey).(string); ok {
		return value
	}
	return ""
}
