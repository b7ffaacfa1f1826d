package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ai-chatbot-client/internal/dto"
	"ai-chatbot-client/internal/entity"
	"ai-chatbot-client/internal/mapper"
	"ai-chatbot-client/internal/pkg/logger"
)

const module = "Gateway"

type HTTPClient struct {
	BaseURL string
	Client  *http.Client
	mapper  *mapper.ChatMapper
	logger  logger.ILogger
}

// Ensure HTTPClient implements IBackendGateway
var _ IBackendGateway = &HTTPClient{}

func NewHTTPClient(baseURL string, timeout time.Duration, log logger.ILogger) *HTTPClient {
	return &HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: timeout,
		},
		mapper: mapper.NewChatMapper(),
		logger: log,
	}
}

func (c *HTTPClient) Authenticate(ctx context.Context, name string) (*entity.User, error) {
	var res dto.UserResponse
	if err := c.do(ctx, http.MethodPost, "/auth", "", dto.AuthRequest{Name: name}, &res); err != nil {
		return nil, err
	}
	if res.Id == "" {
		return nil, fmt.Errorf("%w: %w: auth response without id", ErrUpstream, ErrMalformedResponse)
	}
	return c.mapper.UserToEntity(&res), nil
}

func (c *HTTPClient) ResolveIdentity(ctx context.Context, credential string) (*entity.User, error) {
	var res dto.UserResponse
	if err := c.do(ctx, http.MethodGet, "/users/me", credential, nil, &res); err != nil {
		return nil, err
	}
	if res.Id == "" {
		return nil, fmt.Errorf("%w: %w: identity response without id", ErrUpstream, ErrMalformedResponse)
	}
	return c.mapper.UserToEntity(&res), nil
}

func (c *HTTPClient) ListThreads(ctx context.Context, credential string) ([]entity.ChatThread, error) {
	var res []dto.ThreadResponse
	if err := c.do(ctx, http.MethodGet, "/threads", credential, nil, &res); err != nil {
		return nil, err
	}
	return c.mapper.ThreadsToEntities(res), nil
}

func (c *HTTPClient) ListMessages(ctx context.Context, credential string, threadId int64) ([]entity.ChatMessage, error) {
	var res []dto.MessageResponse
	path := "/threads/" + strconv.FormatInt(threadId, 10) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, credential, nil, &res); err != nil {
		return nil, err
	}
	return c.mapper.MessagesToEntities(res), nil
}

func (c *HTTPClient) SendMessage(ctx context.Context, credential string, threadId *int64, text string) (SendResult, error) {
	var res dto.SendMessageResponse
	req := dto.SendMessageRequest{Message: text, ThreadId: threadId}
	if err := c.do(ctx, http.MethodPost, "/send_message", credential, req, &res); err != nil {
		return nil, err
	}

	if res.UserMessage == nil || res.ChatbotResponse == nil {
		return nil, fmt.Errorf("%w: %w: send response is missing a message", ErrUpstream, ErrMalformedResponse)
	}

	userMessage := *c.mapper.MessageToEntity(res.UserMessage)
	chatbotResponse := *c.mapper.MessageToEntity(res.ChatbotResponse)

	if res.Thread != nil {
		return NewThreadResult{
			Thread:          *c.mapper.ThreadToEntity(res.Thread),
			UserMessage:     userMessage,
			ChatbotResponse: chatbotResponse,
		}, nil
	}
	return ReplyResult{
		UserMessage:     userMessage,
		ChatbotResponse: chatbotResponse,
	}, nil
}

// do performs one JSON exchange. Transport errors, non-2xx statuses and
// undecodable bodies all come back wrapped in ErrUpstream.
func (c *HTTPClient) do(ctx context.Context, method, path, credential string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	start := time.Now()
	resp, err := c.Client.Do(req)
	if err != nil {
		c.logger.Warn(module, "Request failed", map[string]interface{}{
			"method": method,
			"path":   path,
			"error":  err.Error(),
		})
		return fmt.Errorf("%w: %s %s: %v", ErrUpstream, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}

	c.logger.Debug(module, "Request completed", map[string]interface{}{
		"method":      method,
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errRes dto.ErrorResponse
		_ = json.Unmarshal(respBody, &errRes)
		return fmt.Errorf("%w: %s %s returned %d %s", ErrUpstream, method, path, resp.StatusCode, errRes.Error)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %w: %v", ErrUpstream, ErrMalformedResponse, err)
	}
	return nil
}
