package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"ai-blog-bot/internal/adapters/assets"
	"ai-blog-bot/internal/adapters/dedup"
	"ai-blog-bot/internal/adapters/images"
	"ai-blog-bot/internal/adapters/llm"
	"ai-blog-bot/internal/adapters/refcontext"
	"ai-blog-bot/internal/adapters/repo"
	"ai-blog-bot/internal/domain"
	"ai-blog-bot/internal/infra/cache"
	"ai-blog-bot/internal/infra/config"
	"ai-blog-bot/internal/infra/db"
	httpinfra "ai-blog-bot/internal/infra/http"
	applog "ai-blog-bot/internal/infra/log"
	"ai-blog-bot/internal/infra/metrics"
	"ai-blog-bot/internal/infra/openai"
	"ai-blog-bot/internal/usecase/generate"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)
	log := applog.Component(logger, "api")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	repoAdapter := repo.NewPostgres(pool)
	assetStore, err := assets.NewStore(cfg.MediaDir, repoAdapter)
	if err != nil {
		log.Fatal().Err(err).Msg("api: хранилище медиа недоступно")
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

	server := httpinfra.NewServer(applog.Component(logger, "http"))
	r := server.Router

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	// Запуск синхронный: соединение держится до терминального исхода,
	// прогресс можно параллельно опрашивать через /progress.
	r.Post("/api/v1/bots/{id}/run", func(w http.ResponseWriter, r *http.Request) {
		botID, ok := botIDFromRequest(w, r)
		if !ok {
			return
		}
		result, err := generateService.Run(r.Context(), botID)
		if err != nil {
			log.Error().Err(err).Int64("bot_id", botID).Msg("api: ошибка запуска генерации")
			writeError(w, http.StatusInternalServerError, "generation failed to start")
			return
		}
		if result.Outcome == domain.OutcomeBusy {
			w.WriteHeader(http.StatusConflict)
		}
		writeJSON(w, map[string]any{
			"outcome": result.Outcome,
			"reason":  result.Reason,
			"post_id": result.PostID,
		})
	})

	r.Get("/api/v1/bots/{id}/preview", func(w http.ResponseWriter, r *http.Request) {
		botID, ok := botIDFromRequest(w, r)
		if !ok {
			return
		}
		draft, err := generateService.Preview(r.Context(), botID)
		if err != nil {
			if errors.Is(err, generate.ErrProviderNotConfigured) {
				writeError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
			log.Error().Err(err).Int64("bot_id", botID).Msg("api: ошибка предпросмотра")
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, draft)
	})

	r.Get("/api/v1/bots/{id}/progress", func(w http.ResponseWriter, r *http.Request) {
		botID, ok := botIDFromRequest(w, r)
		if !ok {
			return
		}
		progress, err := generateService.Progress(r.Context(), botID)
		if err != nil {
			log.Error().Err(err).Int64("bot_id", botID).Msg("api: ошибка чтения прогресса")
			writeError(w, http.StatusInternalServerError, "failed to read progress")
			return
		}
		writeJSON(w, progress)
	})

	metrics.StartServer(ctx, applog.Component(logger, "metrics"), cfg.MetricsAddr)

	go func() {
		if err := server.Start(":" + strconv.Itoa(cfg.Port)); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("api: сервер остановлен")
		}
	}()
	<-ctx.Done()
	log.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func botIDFromRequest(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid bot id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
}
