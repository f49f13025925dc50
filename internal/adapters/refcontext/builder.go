package refcontext

import (
	"context"
	"errors"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-blog-bot/internal/domain"
	"ai-blog-bot/internal/infra/metrics"
)

const (
	libraryCap       = 15000
	librarySeparator = "\n\n---\n\n"
	examplesLimit    = 8
	examplesCap      = 4000
	summaryTTL       = 24 * time.Hour
	summaryClip      = 800
	fetchTimeout     = 12 * time.Second
	maxRedirects     = 5

	// Метка уходит в промпт, поэтому на английском.
	examplesLabel = "Examples from selected external sites:"
)

// PDFExtractor опциональная возможность извлечения текста из PDF.
// При недоступности документ пропускается с записью в лог.
type PDFExtractor interface {
	IsAvailable() bool
	Extract(path string) (string, error)
}

// Builder собирает справочный контекст бота: тексты документов
// библиотеки и кэшируемые выжимки сайтов-примеров.
type Builder struct {
	media    domain.MediaRepo
	examples domain.ExampleRepo
	pdf      PDFExtractor
	http     *http.Client
	log      zerolog.Logger
	now      func() time.Time
}

// NewBuilder создаёт сборщик контекста.
func NewBuilder(media domain.MediaRepo, examples domain.ExampleRepo, pdf PDFExtractor, logger zerolog.Logger) *Builder {
	client := &http.Client{
		Timeout: fetchTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errors.New("слишком много перенаправлений")
			}
			return nil
		},
	}
	return &Builder{
		media:    media,
		examples: examples,
		pdf:      pdf,
		http:     client,
		log:      logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ domain.ContextBuilder = (*Builder)(nil)

// Build объединяет текст библиотеки и выжимки примеров. Любой
// недоступный источник пропускается; пустой контекст допустим.
func (b *Builder) Build(ctx context.Context, bot domain.Bot) string {
	library := b.buildLibraryText(ctx, bot)
	examples := b.buildExamplesText(ctx, bot)
	if examples != "" {
		library = strings.TrimSpace(library + "\n\n" + examplesLabel + "\n" + examples)
	}
	return library
}

// buildLibraryText читает документы библиотеки бота. Текстовые
// форматы читаются как есть, PDF — через опциональный экстрактор.
// Кап применяется к объединённому тексту, не к каждому документу.
func (b *Builder) buildLibraryText(ctx context.Context, bot domain.Bot) string {
	if len(bot.LibraryDocIDs) == 0 {
		return ""
	}
	docs, err := b.media.GetLibraryDocs(ctx, bot.LibraryDocIDs)
	if err != nil {
		b.log.Error().Err(err).Int64("bot_id", bot.ID).Msg("refcontext: ошибка выборки документов")
		metrics.ContextFetchErrors.Inc()
		return ""
	}

	var parts []string
	for _, doc := range docs {
		switch strings.ToLower(doc.Ext) {
		case "txt", "md", "csv", "json":
			raw, err := os.ReadFile(doc.Path)
			if err != nil {
				b.log.Warn().Err(err).Str("path", doc.Path).Msg("refcontext: документ не прочитан")
				metrics.ContextFetchErrors.Inc()
				continue
			}
			if len(raw) > 0 {
				parts = append(parts, string(raw))
			}
		case "pdf":
			if b.pdf == nil || !b.pdf.IsAvailable() {
				b.log.Warn().Str("path", doc.Path).Msg("refcontext: PDF экстрактор недоступен, документ пропущен")
				continue
			}
			text, err := b.pdf.Extract(doc.Path)
			if err != nil {
				b.log.Warn().Err(err).Str("path", doc.Path).Msg("refcontext: ошибка извлечения PDF")
				metrics.ContextFetchErrors.Inc()
				continue
			}
			if text != "" {
				parts = append(parts, text)
			}
		}
	}

	text := strings.TrimSpace(strings.Join(parts, librarySeparator))
	return clipRunes(text, libraryCap)
}

// buildExamplesText собирает выжимки сайтов-примеров. Свежий кэш
// (моложе суток) переиспользуется; при недоступности сайта вместо
// выжимки подставляется его URL, чтобы контекст не был пустым.
func (b *Builder) buildExamplesText(ctx context.Context, bot domain.Bot) string {
	if len(bot.ExampleCategoryIDs) == 0 {
		return ""
	}
	sites, err := b.examples.ListByCategories(ctx, bot.ExampleCategoryIDs, examplesLimit)
	if err != nil {
		b.log.Error().Err(err).Int64("bot_id", bot.ID).Msg("refcontext: ошибка выборки примеров")
		metrics.ContextFetchErrors.Inc()
		return ""
	}

	var parts []string
	for _, site := range sites {
		if site.URL == "" {
			continue
		}
		summary := ""
		if site.Summary != "" && b.now().Sub(site.SummaryCachedAt) < summaryTTL {
			summary = site.Summary
		} else {
			summary = b.fetchSiteSummary(ctx, site.URL)
			if summary != "" {
				if err := b.examples.SaveSummary(ctx, site.ID, summary, b.now()); err != nil {
					b.log.Error().Err(err).Int64("example_id", site.ID).Msg("refcontext: ошибка кэширования выжимки")
				}
			}
		}
		if summary == "" {
			summary = site.URL
		}
		parts = append(parts, site.Title+" — "+site.URL+"\n"+summary)
		if len(strings.Join(parts, "\n\n")) > examplesCap {
			break
		}
	}
	return strings.Join(parts, "\n\n")
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func clipRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
