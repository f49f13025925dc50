package domain

import (
	"context"
	"time"
)

// GenerationCause описывает источник запроса на генерацию.
type GenerationCause string

const (
	// CauseManual — запуск вручную через API.
	CauseManual GenerationCause = "manual"
	// CauseScheduled — запуск по расписанию бота.
	CauseScheduled GenerationCause = "scheduled"
)

// GenerationJob содержит информацию о задаче генерации поста.
type GenerationJob struct {
	ID          string          `json:"job_id,omitempty"`
	BotID       int64           `json:"bot_id"`
	Cause       GenerationCause `json:"cause"`
	RequestedAt time.Time       `json:"requested_at"`
}

// GenerationQueue описывает очередь задач генерации.
type GenerationQueue interface {
	Enqueue(ctx context.Context, job GenerationJob) error
	Pop(ctx context.Context) (GenerationJob, error)
}
