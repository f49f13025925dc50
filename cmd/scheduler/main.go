package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"ai-blog-bot/internal/adapters/repo"
	"ai-blog-bot/internal/domain"
	"ai-blog-bot/internal/infra/config"
	"ai-blog-bot/internal/infra/db"
	applog "ai-blog-bot/internal/infra/log"
	"ai-blog-bot/internal/infra/metrics"
	"ai-blog-bot/internal/infra/queue"
	"ai-blog-bot/internal/usecase/schedule"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)
	log := applog.Component(logger, "scheduler")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler: нет подключения к БД")
	}
	defer pool.Close()

	var jobs domain.GenerationQueue
	switch cfg.Queue.Backend {
	case "rabbitmq":
		amqpQueue, err := queue.NewAMQPGenerationQueue(cfg.Queue.AMQPURL, cfg.Queue.Key)
		if err != nil {
			log.Fatal().Err(err).Msg("scheduler: нет подключения к RabbitMQ")
		}
		defer amqpQueue.Close()
		jobs = amqpQueue
	default:
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		jobs = queue.NewRedisGenerationQueue(redisClient, cfg.Queue.Key)
	}

	scheduler := schedule.NewService(repo.NewPostgres(pool), jobs, cfg.Generator.Enabled, log)

	metrics.StartServer(ctx, applog.Component(logger, "metrics"), cfg.MetricsAddr)

	log.Info().Bool("enabled", cfg.Generator.Enabled).Msg("scheduler: старт")
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler: остановка")
			return
		case <-ticker.C:
			if err := scheduler.Tick(ctx); err != nil {
				log.Error().Err(err).Msg("scheduler: ошибка прохода")
			}
		}
	}
}
