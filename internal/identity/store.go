// Package identity persists the signed-in user between runs of the chat client.
package identity

import (
	"context"
	"errors"
	"fmt"

	"ai-chatbot-client/internal/entity"
)

var ErrIdentityNotFound = errors.New("identity not found")

// Store is a durability wrapper around the session identity. No expiry, no validation.
type Store interface {
	Save(ctx context.Context, user *entity.User) error
	// Load returns ErrIdentityNotFound when nothing is persisted.
	Load(ctx context.Context) (*entity.User, error)
	Clear(ctx context.Context) error
}

const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Options struct {
	Backend  string
	FilePath string
	RedisURL string
}

// NewStore builds the store named by opts.Backend.
func NewStore(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFileStore(opts.FilePath), nil
	case BackendRedis:
		instanceId, err := LoadOrCreateInstanceId(instanceIdPath(opts.FilePath))
		if err != nil {
			return nil, err
		}
		return NewRedisStore(ctx, opts.RedisURL, instanceId)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown identity store %q", opts.Backend)
	}
}
