package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ai-blog-bot/internal/domain"
)

type stubBots struct {
	bots     []domain.Bot
	lastRuns map[int64]time.Time
}

func (s *stubBots) GetBot(context.Context, int64) (domain.Bot, error) { return domain.Bot{}, nil }
func (s *stubBots) ListEnabledBots(context.Context) ([]domain.Bot, error) {
	var enabled []domain.Bot
	for _, bot := range s.bots {
		if bot.Enabled {
			enabled = append(enabled, bot)
		}
	}
	return enabled, nil
}
func (s *stubBots) UpdateLastRun(_ context.Context, id int64, at time.Time) error {
	if s.lastRuns == nil {
		s.lastRuns = map[int64]time.Time{}
	}
	s.lastRuns[id] = at
	return nil
}

type stubQueue struct {
	jobs []domain.GenerationJob
}

func (s *stubQueue) Enqueue(_ context.Context, job domain.GenerationJob) error {
	s.jobs = append(s.jobs, job)
	return nil
}
func (s *stubQueue) Pop(context.Context) (domain.GenerationJob, error) {
	return domain.GenerationJob{}, nil
}

func TestTickEnqueuesDueBots(t *testing.T) {
	now := time.Now().UTC()
	bots := &stubBots{bots: []domain.Bot{
		{ID: 1, Enabled: true, Schedule: domain.ScheduleDaily, LastRun: now.Add(-25 * time.Hour)},
		{ID: 2, Enabled: true, Schedule: domain.ScheduleDaily, LastRun: now.Add(-time.Hour)},
		{ID: 3, Enabled: true, Schedule: domain.ScheduleHourly},
	}}
	queue := &stubQueue{}
	service := NewService(bots, queue, true, zerolog.Nop())

	if err := service.Tick(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(queue.jobs) != 2 {
		t.Fatalf("ожидали 2 задачи, получили %d", len(queue.jobs))
	}
	for _, job := range queue.jobs {
		if job.Cause != domain.CauseScheduled {
			t.Fatalf("задача планировщика помечается scheduled")
		}
		if job.ID == "" {
			t.Fatalf("задача получает идентификатор")
		}
		if _, ok := bots.lastRuns[job.BotID]; !ok {
			t.Fatalf("last_run фиксируется в момент постановки для бота %d", job.BotID)
		}
	}
}

func TestTickSkipsDisabledBot(t *testing.T) {
	bots := &stubBots{bots: []domain.Bot{
		{ID: 1, Enabled: false, Schedule: domain.ScheduleHourly},
	}}
	queue := &stubQueue{}
	service := NewService(bots, queue, true, zerolog.Nop())

	if err := service.Tick(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(queue.jobs) != 0 {
		t.Fatalf("выключенный бот не получает задач")
	}
	if len(bots.lastRuns) != 0 {
		t.Fatalf("выключенный бот не трогается")
	}
}

func TestTickGlobalSwitchOff(t *testing.T) {
	bots := &stubBots{bots: []domain.Bot{
		{ID: 1, Enabled: true, Schedule: domain.ScheduleHourly},
	}}
	queue := &stubQueue{}
	service := NewService(bots, queue, false, zerolog.Nop())

	if err := service.Tick(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(queue.jobs) != 0 {
		t.Fatalf("при выключенном генераторе задачи не ставятся")
	}
}

func TestDue(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct {
		name string
		bot  domain.Bot
		want bool
	}{
		{"без запусков", domain.Bot{Enabled: true, Schedule: domain.ScheduleDaily}, true},
		{"интервал истёк", domain.Bot{Enabled: true, Schedule: domain.ScheduleHourly, LastRun: now.Add(-2 * time.Hour)}, true},
		{"интервал не истёк", domain.Bot{Enabled: true, Schedule: domain.ScheduleWeekly, LastRun: now.Add(-24 * time.Hour)}, false},
		{"выключен", domain.Bot{Enabled: false, Schedule: domain.ScheduleHourly}, false},
	}
	for _, tc := range cases {
		if got := Due(tc.bot, now); got != tc.want {
			t.Fatalf("%s: ожидали %v", tc.name, tc.want)
		}
	}
}

func TestScheduleInterval(t *testing.T) {
	if domain.ScheduleTwiceDaily.Interval() != 12*time.Hour {
		t.Fatalf("twicedaily — 12 часов")
	}
	if domain.Schedule("unknown").Interval() != 24*time.Hour {
		t.Fatalf("неизвестное расписание трактуется как daily")
	}
}
