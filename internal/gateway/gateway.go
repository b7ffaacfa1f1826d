// Package gateway is the typed client for the chatbot backend, reached through
// the proxy relay. Every failure it returns wraps ErrUpstream; callers treat
// them as opaque.
package gateway

import (
	"context"
	"errors"

	"ai-chatbot-client/internal/entity"
)

var (
	ErrUpstream          = errors.New("upstream request failed")
	ErrMalformedResponse = errors.New("malformed upstream response")
)

type IBackendGateway interface {
	Authenticate(ctx context.Context, name string) (*entity.User, error)
	// ResolveIdentity asks the backend who the credential belongs to. An empty
	// credential is sent without an Authorization header.
	ResolveIdentity(ctx context.Context, credential string) (*entity.User, error)
	ListThreads(ctx context.Context, credential string) ([]entity.ChatThread, error)
	ListMessages(ctx context.Context, credential string, threadId int64) ([]entity.ChatMessage, error)
	// SendMessage posts text to threadId, or starts a new thread when threadId is nil.
	SendMessage(ctx context.Context, credential string, threadId *int64, text string) (SendResult, error)
}

// SendResult is either a ReplyResult or a NewThreadResult.
type SendResult interface {
	isSendResult()
}

// ReplyResult answers a send to an existing thread.
type ReplyResult struct {
	UserMessage     entity.ChatMessage
	ChatbotResponse entity.ChatMessage
}

// NewThreadResult answers a send that created a thread.
type NewThreadResult struct {
	Thread          entity.ChatThread
	UserMessage     entity.ChatMessage
	ChatbotResponse entity.ChatMessage
}

func (ReplyResult) isSendResult()     {}
func (NewThreadResult) isSendResult() {}
