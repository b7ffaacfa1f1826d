package controller

import (
	"strconv"

	"ai-chatbot-client/internal/pkg/serverutils"
	"ai-chatbot-client/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const (
	msgAuthenticate  = "Failed to authenticate"
	msgResolveUser   = "Failed to resolve user"
	msgSendMessage   = "Failed to send message"
	msgFetchThreads  = "Failed to fetch threads"
	msgFetchMessages = "Failed to fetch messages"
)

type IRelayController interface {
	RegisterRoutes(r fiber.Router)
	Authenticate(ctx *fiber.Ctx) error
	ResolveUser(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	ListThreads(ctx *fiber.Ctx) error
	ListMessages(ctx *fiber.Ctx) error
}

type relayController struct {
	service  service.IRelayService
	validate *validator.Validate
}

func NewRelayController(service service.IRelayService) IRelayController {
	return &relayController{
		service:  service,
		validate: validator.New(),
	}
}

func (c *relayController) RegisterRoutes(r fiber.Router) {
	r.Post("/auth", c.Authenticate)
	r.Get("/users/me", c.ResolveUser)
	r.Post("/send_message", c.SendMessage)
	r.Get("/threads", c.ListThreads)
	r.Get("/threads/:threadId/messages", c.ListMessages)
}

func (c *relayController) Authenticate(ctx *fiber.Ctx) error {
	return c.forward(ctx, "authenticate", fiber.MethodPost, "/auth", ctx.Body(), msgAuthenticate)
}

func (c *relayController) ResolveUser(ctx *fiber.Ctx) error {
	return c.forward(ctx, "resolve_identity", fiber.MethodGet, "/users/me", nil, msgResolveUser)
}

func (c *relayController) SendMessage(ctx *fiber.Ctx) error {
	return c.forward(ctx, "send_message", fiber.MethodPost, "/send_message", ctx.Body(), msgSendMessage)
}

func (c *relayController) ListThreads(ctx *fiber.Ctx) error {
	return c.forward(ctx, "list_threads", fiber.MethodGet, "/threads", nil, msgFetchThreads)
}

func (c *relayController) ListMessages(ctx *fiber.Ctx) error {
	threadId, err := strconv.ParseInt(ctx.Params("threadId"), 10, 64)
	if err != nil || c.validate.Var(threadId, "gt=0") != nil {
		return serverutils.Fail(ctx, msgFetchMessages)
	}
	path := "/threads/" + strconv.FormatInt(threadId, 10) + "/messages"
	return c.forward(ctx, "list_messages", fiber.MethodGet, path, nil, msgFetchMessages)
}

func (c *relayController) forward(ctx *fiber.Ctx, operation, method, path string, body []byte, failure string) error {
	res, err := c.service.Forward(ctx.UserContext(), service.ForwardRequest{
		Operation:     operation,
		Method:        method,
		Path:          path,
		Authorization: ctx.Get(fiber.HeaderAuthorization),
		// fiber reuses the request buffer after the handler returns
		Body:      append([]byte(nil), body...),
		RequestID: serverutils.GetRequestID(ctx),
	})
	if err != nil {
		return serverutils.Fail(ctx, failure)
	}
	return serverutils.RelayJSON(ctx, res)
}
