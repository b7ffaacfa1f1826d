package identity

import (
	"context"

	"ai-chatbot-client/internal/entity"

	"github.com/patrickmn/go-cache"
)

const memoryKey = "identity"

// MemoryStore keeps the identity for the lifetime of the process.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (s *MemoryStore) Save(_ context.Context, user *entity.User) error {
	stored := *user
	s.cache.Set(memoryKey, &stored, cache.NoExpiration)
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (*entity.User, error) {
	if x, found := s.cache.Get(memoryKey); found {
		user := *x.(*entity.User)
		return &user, nil
	}
	return nil, ErrIdentityNotFound
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.cache.Delete(memoryKey)
	return nil
}
