package serverutils

import (
	"time"

	"ai-chatbot-client/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-ID"
	LocalRequestID  = "request_id"
)

// RequestID keeps a caller-supplied X-Request-ID or generates one, and echoes it back.
func RequestID() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		id := ctx.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		ctx.Locals(LocalRequestID, id)
		ctx.Set(HeaderRequestID, id)
		return ctx.Next()
	}
}

// GetRequestID returns the id stored by RequestID, or "" outside that middleware.
func GetRequestID(ctx *fiber.Ctx) string {
	id, _ := ctx.Locals(LocalRequestID).(string)
	return id
}

// RequestLogger writes one structured line per request.
func RequestLogger(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		status := ctx.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		details := map[string]interface{}{
			"request_id":  GetRequestID(ctx),
			"method":      ctx.Method(),
			"path":        ctx.Path(),
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if status >= fiber.StatusInternalServerError {
			log.Warn("HTTP", "Request failed", details)
		} else {
			log.Info("HTTP", "Request handled", details)
		}
		return err
	}
}
