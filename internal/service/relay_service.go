package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-chatbot-client/internal/pkg/logger"
	"ai-chatbot-client/pkg/events"

	"github.com/valyala/fasthttp"
)

var ErrUpstreamFailure = errors.New("upstream failure")

// ForwardRequest is one call to relay to the chatbot backend.
type ForwardRequest struct {
	Operation     string
	Method        string
	Path          string
	Authorization string // copied verbatim when non-empty
	Body          []byte
	RequestID     string
}

type IRelayService interface {
	// Forward returns the upstream JSON body on a 2xx answer. Everything else,
	// including a 2xx body that is not JSON, wraps ErrUpstreamFailure.
	Forward(ctx context.Context, req ForwardRequest) ([]byte, error)
}

type relayService struct {
	upstreamURL string
	timeout     time.Duration
	client      *fasthttp.Client
	publisher   events.Publisher
	logger      logger.ILogger
}

func NewRelayService(upstreamURL string, timeout time.Duration, publisher events.Publisher, log logger.ILogger) IRelayService {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &relayService{
		upstreamURL: strings.TrimRight(upstreamURL, "/"),
		timeout:     timeout,
		client: &fasthttp.Client{
			Name:                     "ai-chatbot-relay",
			ReadTimeout:              timeout,
			WriteTimeout:             timeout,
			NoDefaultUserAgentHeader: true,
		},
		publisher: publisher,
		logger:    log,
	}
}

func (s *relayService) Forward(ctx context.Context, in ForwardRequest) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.upstreamURL + in.Path)
	req.Header.SetMethod(in.Method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if in.Authorization != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, in.Authorization)
	}
	if in.RequestID != "" {
		req.Header.Set("X-Request-ID", in.RequestID)
	}
	if len(in.Body) > 0 {
		req.Header.SetContentType("application/json")
		req.SetBody(in.Body)
	}

	start := time.Now()
	err := s.client.DoTimeout(req, resp, s.timeoutFor(ctx))
	elapsed := time.Since(start)

	if err != nil {
		return nil, s.fail(in, 0, elapsed, fmt.Errorf("%w: %v", ErrUpstreamFailure, err))
	}

	status := resp.StatusCode()
	if status < fasthttp.StatusOK || status > 299 {
		return nil, s.fail(in, status, elapsed, fmt.Errorf("%w: status %d", ErrUpstreamFailure, status))
	}

	// resp is released on return
	body := append([]byte(nil), resp.Body()...)
	if !json.Valid(body) {
		return nil, s.fail(in, status, elapsed, fmt.Errorf("%w: body is not JSON", ErrUpstreamFailure))
	}

	s.logger.Debug("Relay", "Forwarded", map[string]interface{}{
		"request_id":  in.RequestID,
		"operation":   in.Operation,
		"status":      status,
		"duration_ms": elapsed.Milliseconds(),
	})
	s.publish(events.NewEvent(events.TypeRelayForwarded, map[string]interface{}{
		"request_id":  in.RequestID,
		"operation":   in.Operation,
		"status":      status,
		"duration_ms": elapsed.Milliseconds(),
	}))

	return body, nil
}

// timeoutFor shortens the configured timeout to the context deadline, if any.
func (s *relayService) timeoutFor(ctx context.Context) time.Duration {
	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

func (s *relayService) fail(in ForwardRequest, status int, elapsed time.Duration, err error) error {
	s.logger.Warn("Relay", "Upstream call failed", map[string]interface{}{
		"request_id":  in.RequestID,
		"operation":   in.Operation,
		"path":        in.Path,
		"status":      status,
		"duration_ms": elapsed.Milliseconds(),
		"error":       err.Error(),
	})
	s.publish(events.NewEvent(events.TypeRelayFailed, map[string]interface{}{
		"request_id": in.RequestID,
		"operation":  in.Operation,
		"status":     status,
		"error":      err.Error(),
	}))
	return err
}

// publish is fire-and-forget so an unreachable event bus never delays a response.
func (s *relayService) publish(event events.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Relay", "Failed to publish relay event", map[string]interface{}{
				"type":  event.EventType(),
				"error": err.Error(),
			})
		}
	}()
}
