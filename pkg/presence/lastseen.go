package presence

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Aashay2112/chat-app/pkg/model"
)

// LastSeen remembers when a user closed their final connection.
type LastSeen interface {
	Touch(ctx context.Context, userID string, at time.Time) error
	Get(ctx context.Context, userIDs []string) (map[string]time.Time, error)
}

const lastSeenTTL = 30 * 24 * time.Hour

type RedisLastSeen struct {
	rdb *redis.Client
}

func NewRedisLastSeen(rdb *redis.Client) *RedisLastSeen {
	return &RedisLastSeen{rdb: rdb}
}

func lastSeenKey(userID string) string {
	return "lastseen:" + userID
}

func (s *RedisLastSeen) Touch(ctx context.Context, userID string, at time.Time) error {
	err := s.rdb.Set(ctx, lastSeenKey(userID), at.UnixMilli(), lastSeenTTL).Err()
	return model.Dependency(err, "redis set last seen")
}

func (s *RedisLastSeen) Get(ctx context.Context, userIDs []string) (map[string]time.Time, error) {
	out := make(map[string]time.Time, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = lastSeenKey(id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, model.Dependency(err, "redis get last seen")
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		ms, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			continue
		}
		out[userIDs[i]] = time.UnixMilli(ms).UTC()
	}
	return out, nil
}

type MemoryLastSeen struct {
	mu sync.RWMutex
	at map[string]time.Time
}

func NewMemoryLastSeen() *MemoryLastSeen {
	return &MemoryLastSeen{at: make(map[string]time.Time)}
}

func (s *MemoryLastSeen) Touch(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	s.at[userID] = at.UTC()
	s.mu.Unlock()
	return nil
}

func (s *MemoryLastSeen) Get(_ context.Context, userIDs []string) (map[string]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]time.Time, len(userIDs))
	for _, id := range userIDs {
		if at, ok := s.at[id]; ok {
			out[id] = at
		}
	}
	return out, nil
}
