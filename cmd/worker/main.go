package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"ai-blog-bot/internal/adapters/assets"
	"ai-blog-bot/internal/adapters/dedup"
	"ai-blog-bot/internal/adapters/images"
	"ai-blog-bot/internal/adapters/llm"
	"ai-blog-bot/internal/adapters/notify"
	"ai-blog-bot/internal/adapters/refcontext"
	"ai-blog-bot/internal/adapters/repo"
	"ai-blog-bot/internal/domain"
	"ai-blog-bot/internal/infra/cache"
	"ai-blog-bot/internal/infra/config"
	"ai-blog-bot/internal/infra/db"
	applog "ai-blog-bot/internal/infra/log"
	"ai-blog-bot/internal/infra/metrics"
	"ai-blog-bot/internal/infra/openai"
	"ai-blog-bot/internal/infra/queue"
	"ai-blog-bot/internal/usecase/generate"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)
	log := applog.Component(logger, "worker")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("worker: нет подключения к БД")
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	var jobs domain.GenerationQueue
	switch cfg.Queue.Backend {
	case "rabbitmq":
		amqpQueue, err := queue.NewAMQPGenerationQueue(cfg.Queue.AMQPURL, cfg.Queue.Key)
		if err != nil {
			log.Fatal().Err(err).Msg("worker: нет подключения к RabbitMQ")
		}
		defer amqpQueue.Close()
		jobs = amqpQueue
	default:
		jobs = queue.NewRedisGenerationQueue(redisClient, cfg.Queue.Key)
	}

	repoAdapter := repo.NewPostgres(pool)
	assetStore, err := assets.NewStore(cfg.MediaDir, repoAdapter)
	if err != nil {
		log.Fatal().Err(err).Msg("worker: хранилище медиа недоступно")
	}

	openaiClient := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.ChatTimeout)
	generator := llm.NewGenerator(openaiClient, assetStore, llm.Config{
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
		ImageModel:     cfg.OpenAI.ImageModel,
		ImageSize:      cfg.OpenAI.ImageSize,
		ChatTimeout:    cfg.OpenAI.ChatTimeout,
		ImageTimeout:   cfg.OpenAI.ImageTimeout,
	}, applog.Component(logger, "llm"))

	generateService := generate.NewService(
		repoAdapter,
		repoAdapter,
		generator,
		refcontext.NewBuilder(repoAdapter, repoAdapter, refcontext.NewPDFExtractor(), applog.Component(logger, "refcontext")),
		dedup.NewEngine(repoAdapter, repoAdapter, generator, applog.Component(logger, "dedup")),
		images.NewResolver(generator, repoAdapter, assetStore, applog.Component(logger, "images"), nil),
		cache.NewProgressStore(redisClient),
		cache.NewRunLock(redisClient),
		openaiClient,
		generate.Options{
			GlobalInstructions: cfg.Generator.GlobalInstructions,
			ContentTemplate:    cfg.Generator.ContentTemplate,
			SiteName:           cfg.Site.Name,
			SiteBaseURL:        cfg.Site.BaseURL,
			SEOTitleFormat:     cfg.SEO.TitleFormat,
			SEOMetaPrompt:      cfg.SEO.MetaPrompt,
			DefaultModel:       cfg.OpenAI.Model,
			DefaultTemperature: cfg.OpenAI.Temperature,
			DefaultPostStatus:  cfg.Generator.DefaultPostStatus,
			DefaultCategoryID:  cfg.Generator.DefaultCategoryID,
			AuthorID:           cfg.Generator.AuthorID,
		},
		applog.Component(logger, "generate"),
	)

	notifier, err := notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.AdminChatID, applog.Component(logger, "notify"))
	if err != nil {
		log.Fatal().Err(err).Msg("worker: не удалось создать нотификатор")
	}

	metrics.StartServer(ctx, applog.Component(logger, "metrics"), cfg.MetricsAddr)

	log.Info().Str("queue", cfg.Queue.Backend).Msg("worker: старт")
	for {
		job, err := jobs.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Info().Msg("worker: остановка")
				return
			}
			log.Error().Err(err).Msg("worker: ошибка чтения очереди")
			continue
		}
		log.Info().Int64("bot_id", job.BotID).Str("job_id", job.ID).Str("cause", string(job.Cause)).Msg("worker: задача получена")

		result, err := generateService.Run(ctx, job.BotID)
		if err != nil {
			log.Error().Err(err).Int64("bot_id", job.BotID).Msg("worker: задача не выполнена")
			continue
		}
		if notifier != nil {
			bot, botErr := repoAdapter.GetBot(ctx, job.BotID)
			if botErr == nil {
				notifier.NotifyResult(ctx, bot, result)
			}
		}
	}
}
