package asynctask

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	dErrors "lifeline/pkg/domain-errors"
)

const keyPrefix = "asynctask:"

// RedisStore keeps tasks in Redis with a TTL, which doubles as the eviction
// policy for completed tasks.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Create(ctx context.Context, t *Task) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+t.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store task: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Task, error) {
	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, dErrors.New(dErrors.CodeNotFound, "task "+id+" not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &t, nil
}

func (s *RedisStore) Complete(ctx context.Context, id string, result json.RawMessage) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.Status == StatusCompleted {
		return nil
	}
	t.Status = StatusCompleted
	t.Result = result
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+id, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store task: %w", err)
	}
	return nil
}
