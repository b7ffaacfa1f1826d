package serverutils

import (
	"errors"

	"ai-chatbot-client/internal/dto"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the only failure body the relay ever writes.
func ErrorResponse(message string) dto.ErrorResponse {
	return dto.ErrorResponse{Error: message}
}

// Fail answers with status 500 and the generic message. Upstream status and
// detail never reach the caller.
func Fail(ctx *fiber.Ctx, message string) error {
	return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(message))
}

// RelayJSON writes an already-validated upstream JSON body with status 200.
func RelayJSON(ctx *fiber.Ctx, body []byte) error {
	ctx.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return ctx.Status(fiber.StatusOK).Send(body)
}

// ErrorHandler is the fiber.Config.ErrorHandler for the relay. Routing errors
// keep their status; anything else becomes the uniform failure.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		return ctx.Status(fe.Code).JSON(ErrorResponse(fe.Message))
	}
	return Fail(ctx, "Internal server error")
}
