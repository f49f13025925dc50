package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-blog-bot/internal/domain"
)

// Service находит ботов, чей интервал истёк, и ставит им задачи
// генерации. Время последнего запуска фиксируется в момент постановки,
// чтобы задача в очереди не планировалась повторно.
type Service struct {
	bots    domain.BotRepo
	queue   domain.GenerationQueue
	enabled bool
	log     zerolog.Logger
	now     func() time.Time
}

// NewService создаёт планировщик. Флаг enabled — глобальный
// выключатель генерации: при false Tick ничего не ставит.
func NewService(bots domain.BotRepo, queue domain.GenerationQueue, enabled bool, logger zerolog.Logger) *Service {
	return &Service{
		bots:    bots,
		queue:   queue,
		enabled: enabled,
		log:     logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Tick один проход планировщика: выбирает включённых ботов,
// ставит задачи тем, у кого интервал истёк.
func (s *Service) Tick(ctx context.Context) error {
	if !s.enabled {
		return nil
	}
	bots, err := s.bots.ListEnabledBots(ctx)
	if err != nil {
		return fmt.Errorf("выборка ботов: %w", err)
	}
	now := s.now()
	for _, bot := range bots {
		if !Due(bot, now) {
			continue
		}
		job := domain.GenerationJob{
			ID:          uuid.NewString(),
			BotID:       bot.ID,
			Cause:       domain.CauseScheduled,
			RequestedAt: now,
		}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			s.log.Error().Err(err).Int64("bot_id", bot.ID).Msg("schedule: не удалось поставить задачу")
			continue
		}
		if err := s.bots.UpdateLastRun(ctx, bot.ID, now); err != nil {
			s.log.Error().Err(err).Int64("bot_id", bot.ID).Msg("schedule: не удалось обновить last_run")
		}
		s.log.Info().Int64("bot_id", bot.ID).Str("job_id", job.ID).Msg("schedule: задача поставлена")
	}
	return nil
}

// Due сообщает, пора ли запускать бота. Бот без зафиксированного
// запуска считается просроченным.
func Due(bot domain.Bot, now time.Time) bool {
	if !bot.Enabled {
		return false
	}
	if bot.LastRun.IsZero() {
		return true
	}
	return now.Sub(bot.LastRun) >= bot.Schedule.Interval()
}
