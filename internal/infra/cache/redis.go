package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ai-blog-bot/internal/domain"
)

// RedisRunLock реализует domain.RunLock через Redis SETNX.
type RedisRunLock struct {
	client *redis.Client
}

// NewRunLock создаёт маркер запуска.
func NewRunLock(client *redis.Client) *RedisRunLock {
	return &RedisRunLock{client: client}
}

var _ domain.RunLock = (*RedisRunLock)(nil)

func runKey(botID int64) string {
	return fmt.Sprintf("bot_running:%d", botID)
}

// TryAcquire пытается захватить маркер запуска бота. TTL страхует
// от зависшего маркера после падения процесса.
func (l *RedisRunLock) TryAcquire(ctx context.Context, botID int64, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, runKey(botID), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("захват маркера запуска: %w", err)
	}
	return ok, nil
}

// Release снимает маркер запуска.
func (l *RedisRunLock) Release(ctx context.Context, botID int64) error {
	return l.client.Del(ctx, runKey(botID)).Err()
}

// RedisProgressStore реализует domain.ProgressStore через Redis.
type RedisProgressStore struct {
	client *redis.Client
}

// NewProgressStore создаёт хранилище прогресса.
func NewProgressStore(client *redis.Client) *RedisProgressStore {
	return &RedisProgressStore{client: client}
}

var _ domain.ProgressStore = (*RedisProgressStore)(nil)

func progressKey(botID int64) string {
	return fmt.Sprintf("bot_progress:%d", botID)
}

// Set перезаписывает запись прогресса бота.
func (s *RedisProgressStore) Set(ctx context.Context, botID int64, p domain.Progress, ttl time.Duration) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	if err := s.client.Set(ctx, progressKey(botID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("запись прогресса: %w", err)
	}
	return nil
}

// Get возвращает запись прогресса либо idle, если записи нет.
func (s *RedisProgressStore) Get(ctx context.Context, botID int64) (domain.Progress, error) {
	raw, err := s.client.Get(ctx, progressKey(botID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Progress{Status: domain.ProgressIdle, Total: 8}, nil
		}
		return domain.Progress{}, fmt.Errorf("чтение прогресса: %w", err)
	}
	var p domain.Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Progress{}, fmt.Errorf("decode progress: %w", err)
	}
	return p, nil
}
