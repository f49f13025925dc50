package images

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"ai-blog-bot/internal/domain"
	"ai-blog-bot/internal/infra/metrics"
)

const (
	categoryPoolLimit = 50
	altTextLimit      = 120
)

// request описывает один подбор обложки.
type request struct {
	bot         domain.Bot
	postID      int64
	imagePrompt string
	title       string
}

// strategy пытается получить обложку одним способом. Возвращает
// ok=false без ошибки, если способ неприменим или не сработал.
type strategy struct {
	name string
	pick func(ctx context.Context, req request) (domain.Asset, bool)
}

// Resolver подбирает обложку поста по упорядоченной цепочке стратегий:
// генерация по описанию, пул категории, запасной список бота,
// синтезированная заглушка. Первый успех завершает цепочку.
type Resolver struct {
	generator  domain.Generator
	media      domain.MediaRepo
	assets     domain.AssetStore
	log        zerolog.Logger
	intn       func(n int) int
	strategies []strategy
}

// NewResolver создаёт резолвер обложек. randIntn позволяет тестам
// фиксировать выбор из пулов; nil включает math/rand.
func NewResolver(generator domain.Generator, media domain.MediaRepo, assets domain.AssetStore, logger zerolog.Logger, randIntn func(n int) int) *Resolver {
	if randIntn == nil {
		randIntn = rand.Intn
	}
	r := &Resolver{
		generator: generator,
		media:     media,
		assets:    assets,
		log:       logger,
		intn:      randIntn,
	}
	r.strategies = []strategy{
		{name: "generated", pick: r.pickGenerated},
		{name: "category_pool", pick: r.pickFromCategory},
		{name: "fallback_list", pick: r.pickFromFallbackList},
		{name: "placeholder", pick: r.pickPlaceholder},
	}
	return r
}

var _ domain.ImageResolver = (*Resolver)(nil)

// Resolve подбирает и привязывает обложку к посту. Цепочка
// заканчивается заглушкой, поэтому при штатной работе результат
// есть всегда; ошибка возможна только на шаге привязки.
func (r *Resolver) Resolve(ctx context.Context, bot domain.Bot, postID int64, imagePrompt, title string) (domain.Asset, error) {
	req := request{bot: bot, postID: postID, imagePrompt: imagePrompt, title: title}
	for _, s := range r.strategies {
		asset, ok := s.pick(ctx, req)
		if !ok {
			continue
		}
		metrics.ImageFallbackTotal.WithLabelValues(s.name).Inc()
		if err := r.attach(ctx, asset, req); err != nil {
			return domain.Asset{}, err
		}
		r.log.Info().Int64("post_id", postID).Str("strategy", s.name).Int64("asset_id", asset.ID).Msg("images: обложка установлена")
		return asset, nil
	}
	return domain.Asset{}, fmt.Errorf("images: цепочка стратегий не дала результата для поста %d", postID)
}

func (r *Resolver) pickGenerated(ctx context.Context, req request) (domain.Asset, bool) {
	if req.imagePrompt == "" {
		return domain.Asset{}, false
	}
	return r.generator.GenerateImage(ctx, req.imagePrompt)
}

func (r *Resolver) pickFromCategory(ctx context.Context, req request) (domain.Asset, bool) {
	if req.bot.ImageCategoryID == 0 {
		return domain.Asset{}, false
	}
	pool, err := r.media.ListImagesByCategory(ctx, req.bot.ImageCategoryID, categoryPoolLimit)
	if err != nil {
		r.log.Error().Err(err).Int64("category_id", req.bot.ImageCategoryID).Msg("images: ошибка выборки пула категории")
		return domain.Asset{}, false
	}
	if len(pool) == 0 {
		return domain.Asset{}, false
	}
	return pool[r.intn(len(pool))], true
}

func (r *Resolver) pickFromFallbackList(ctx context.Context, req request) (domain.Asset, bool) {
	if len(req.bot.FallbackImageIDs) == 0 {
		return domain.Asset{}, false
	}
	assets, err := r.media.GetAssets(ctx, req.bot.FallbackImageIDs)
	if err != nil {
		r.log.Error().Err(err).Int64("bot_id", req.bot.ID).Msg("images: ошибка выборки запасных изображений")
		return domain.Asset{}, false
	}
	if len(assets) == 0 {
		return domain.Asset{}, false
	}
	return assets[r.intn(len(assets))], true
}

// attach привязывает обложку и проставляет alt-текст: описание
// изображения либо заголовок поста, без разметки, до 120 символов.
func (r *Resolver) attach(ctx context.Context, asset domain.Asset, req request) error {
	if err := r.assets.AttachToPost(ctx, asset.ID, req.postID); err != nil {
		return fmt.Errorf("привязка обложки: %w", err)
	}
	alt := req.imagePrompt
	if alt == "" {
		alt = req.title
	}
	alt = clipRunes(stripTags(alt), altTextLimit)
	if err := r.assets.SetAltText(ctx, asset.ID, alt); err != nil {
		r.log.Error().Err(err).Int64("asset_id", asset.ID).Msg("images: не удалось записать alt-текст")
	}
	return nil
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	return strings.TrimSpace(tagRe.ReplaceAllString(s, ""))
}

func clipRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
