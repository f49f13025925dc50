package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ai-blog-bot/internal/domain"
	openai "ai-blog-bot/internal/infra/openai"
)

type providerClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateEmbedding(ctx context.Context, req openai.EmbeddingRequest) ([]float64, error)
	CreateImage(ctx context.Context, req openai.ImageRequest) (string, error)
}

// Config задаёт модели и потолки длительности вызовов провайдера.
type Config struct {
	EmbeddingModel string
	ImageModel     string
	ImageSize      string
	ChatTimeout    time.Duration
	ImageTimeout   time.Duration
}

// Generator реализует domain.Generator поверх HTTP клиента провайдера.
// Все ошибки транспорта поглощаются и логируются: подзадача возвращает
// пустой результат, фатальность решает оркестратор.
type Generator struct {
	client providerClient
	assets domain.AssetStore
	cfg    Config
	log    zerolog.Logger
}

// NewGenerator создаёт адаптер подзадач генерации.
func NewGenerator(client providerClient, assets domain.AssetStore, cfg Config, logger zerolog.Logger) *Generator {
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "gpt-image-1"
	}
	if cfg.ImageSize == "" {
		cfg.ImageSize = "1024x1024"
	}
	if cfg.ChatTimeout <= 0 {
		cfg.ChatTimeout = 45 * time.Second
	}
	if cfg.ImageTimeout <= 0 {
		cfg.ImageTimeout = 60 * time.Second
	}
	return &Generator{client: client, assets: assets, cfg: cfg, log: logger}
}

var _ domain.Generator = (*Generator)(nil)

// Complete выполняет chat completion и возвращает текст первого выбора.
// Пустая строка означает отказ подзадачи. Повторов нет.
func (g *Generator) Complete(ctx context.Context, messages []domain.PromptMessage, model string, maxTokens int, temperature float64) string {
	if len(messages) == 0 {
		return ""
	}
	chatMessages := make([]openai.ChatMessage, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.ChatTimeout)
	defer cancel()
	resp, err := g.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    chatMessages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		g.log.Error().Err(err).Str("model", model).Msg("llm: ошибка chat completion")
		return ""
	}
	if len(resp.Choices) == 0 {
		g.log.Error().Str("model", model).Msg("llm: пустой ответ chat completion")
		return ""
	}
	return resp.Choices[0].Message.Content
}

// Embed возвращает эмбеддинг текста либо nil при любой ошибке.
func (g *Generator) Embed(ctx context.Context, text string) []float64 {
	if text == "" {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.ChatTimeout)
	defer cancel()
	vec, err := g.client.CreateEmbedding(callCtx, openai.EmbeddingRequest{
		Model: g.cfg.EmbeddingModel,
		Input: text,
	})
	if err != nil {
		g.log.Error().Err(err).Msg("llm: ошибка embeddings")
		return nil
	}
	return vec
}

// GenerateImage синтезирует изображение по описанию, скачивает его
// и сохраняет в хранилище. ok=false при отказе на любом этапе.
func (g *Generator) GenerateImage(ctx context.Context, promptText string) (domain.Asset, bool) {
	if promptText == "" {
		return domain.Asset{}, false
	}
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.ImageTimeout)
	defer cancel()
	imageURL, err := g.client.CreateImage(callCtx, openai.ImageRequest{
		Model:  g.cfg.ImageModel,
		Prompt: promptText,
		Size:   g.cfg.ImageSize,
	})
	if err != nil {
		g.log.Error().Err(err).Msg("llm: ошибка генерации изображения")
		return domain.Asset{}, false
	}
	storeCtx, cancelStore := context.WithTimeout(ctx, g.cfg.ImageTimeout)
	defer cancelStore()
	asset, err := g.assets.StoreFromURL(storeCtx, imageURL)
	if err != nil {
		g.log.Error().Err(err).Msg("llm: не удалось сохранить изображение")
		return domain.Asset{}, false
	}
	return asset, true
}
