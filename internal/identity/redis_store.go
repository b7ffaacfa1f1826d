package identity

import (
	"context"
	"fmt"
	"log"

	"ai-chatbot-client/internal/entity"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "chat:identity:"

// RedisStore keeps the identity in a hash keyed by the client instance id.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(ctx context.Context, redisURL, instanceId string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: redisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisStoreWithClient(rdb, instanceId), nil
}

func NewRedisStoreWithClient(rdb *redis.Client, instanceId string) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		key: redisKeyPrefix + instanceId,
	}
}

func (s *RedisStore) Save(ctx context.Context, user *entity.User) error {
	if err := s.rdb.HSet(ctx, s.key, "id", user.Id, "name", user.Name).Err(); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (*entity.User, error) {
	values, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	if values["id"] == "" || values["name"] == "" {
		return nil, ErrIdentityNotFound
	}
	return &entity.User{Id: values["id"], Name: values["name"]}, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear identity: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
