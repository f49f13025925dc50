package dedup

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-blog-bot/internal/domain"
	"ai-blog-bot/internal/infra/metrics"
)

const (
	// Окно и лимит нечёткой проверки шире, чем у семантической:
	// наблюдаемое поведение исходной системы сохранено намеренно.
	lexicalWindowDays  = 365
	lexicalLimit       = 200
	lexicalThreshold   = 85
	semanticCandidates = 50
	candidateClip      = 800
	defaultThreshold   = 0.90
)

type embedder interface {
	Embed(ctx context.Context, text string) []float64
}

// Engine реализует двухъярусную проверку кандидата на дубликат.
// Оба яруса блокируют только коммит, не саму генерацию.
type Engine struct {
	content    domain.ContentRepo
	embeddings domain.EmbeddingRepo
	embedder   embedder
	log        zerolog.Logger
	now        func() time.Time
}

// NewEngine создаёт движок дедупликации.
func NewEngine(content domain.ContentRepo, embeddings domain.EmbeddingRepo, embedder embedder, logger zerolog.Logger) *Engine {
	return &Engine{
		content:    content,
		embeddings: embeddings,
		embedder:   embedder,
		log:        logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

var _ domain.Deduper = (*Engine)(nil)

// CheckTitle сравнивает заголовок с недавними постами: сначала точное
// совпадение, затем процентная схожесть против окна в 365 дней.
func (e *Engine) CheckTitle(ctx context.Context, title string) (bool, string) {
	exists, err := e.content.TitleExists(ctx, title)
	if err != nil {
		e.log.Error().Err(err).Msg("dedup: ошибка поиска по заголовку")
		return false, ""
	}
	if exists {
		metrics.DedupSkipsTotal.WithLabelValues("lexical").Inc()
		return true, "duplicate title"
	}

	since := e.now().AddDate(0, 0, -lexicalWindowDays)
	titles, err := e.content.ListRecentTitles(ctx, since, lexicalLimit)
	if err != nil {
		e.log.Error().Err(err).Msg("dedup: ошибка выборки недавних заголовков")
		return false, ""
	}
	candidate := strings.ToLower(title)
	for _, existing := range titles {
		if SimilarityPercent(strings.ToLower(existing), candidate) >= lexicalThreshold {
			metrics.DedupSkipsTotal.WithLabelValues("lexical").Inc()
			return true, "duplicate title"
		}
	}
	return false, ""
}

// CheckSemantic сравнивает эмбеддинг кандидата с последними
// опубликованными постами. Выключенный флаг бота или недоступный
// эмбеддинг пропускают ярус без ошибки.
func (e *Engine) CheckSemantic(ctx context.Context, bot domain.Bot, title, excerpt string) (bool, int64) {
	if !bot.SemanticDedup || e.embedder == nil {
		return false, 0
	}
	threshold := bot.SemanticThreshold
	if threshold <= 0 {
		threshold = defaultThreshold
	}

	candidate := e.embedder.Embed(ctx, clipRunes(title+"\n\n"+excerpt, candidateClip))
	if candidate == nil {
		return false, 0
	}

	ids, err := e.content.ListRecentPublishedIDs(ctx, semanticCandidates)
	if err != nil {
		e.log.Error().Err(err).Msg("dedup: ошибка выборки опубликованных постов")
		return false, 0
	}
	for _, id := range ids {
		existing := e.titleEmbedding(ctx, id)
		if existing == nil {
			continue
		}
		sim := CosineSimilarity(candidate, existing)
		if sim >= threshold {
			e.log.Info().Int64("post_id", id).Float64("similarity", sim).Msg("dedup: семантический дубликат")
			metrics.DedupSkipsTotal.WithLabelValues("semantic").Inc()
			return true, id
		}
	}
	return false, 0
}

// titleEmbedding возвращает кэшированный эмбеддинг заголовка поста,
// при промахе вычисляет и сохраняет. Вычисление идемпотентно,
// блокировка не нужна.
func (e *Engine) titleEmbedding(ctx context.Context, postID int64) []float64 {
	cached, err := e.embeddings.GetTitleEmbedding(ctx, postID)
	if err != nil {
		e.log.Error().Err(err).Int64("post_id", postID).Msg("dedup: ошибка чтения кэша эмбеддингов")
		return nil
	}
	if len(cached) > 0 {
		return cached
	}
	title, err := e.content.GetPostTitle(ctx, postID)
	if err != nil || title == "" {
		return nil
	}
	vec := e.embedder.Embed(ctx, title)
	if vec == nil {
		return nil
	}
	if err := e.embeddings.SaveTitleEmbedding(ctx, postID, vec); err != nil {
		e.log.Error().Err(err).Int64("post_id", postID).Msg("dedup: ошибка записи кэша эмбеддингов")
	}
	return vec
}

func clipRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
