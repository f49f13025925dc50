package generate

import (
	"context"
	"regexp"
	"strings"

	"ai-blog-bot/internal/domain"
)

const (
	descriptionMaxRunes  = 160
	descriptionCutRunes  = 157
	descriptionWordLimit = 28
	seoContentClip       = 1200

	// Системный промпт SEO-описания: модель видит английский текст.
	seoSystemPrompt = "You write concise, compelling SEO meta descriptions (<=160 characters). Return only the final description, no quotes."
)

// composeSEO собирает SEO-метаданные поста до его создания.
// Описание сначала запрашивается у модели вторичным промптом,
// при пустом ответе выводится из контента.
func (s *Service) composeSEO(ctx context.Context, draft pipelineDraft, categoryName, model string, temperature float64) domain.SEOMeta {
	meta := domain.SEOMeta{
		Title:        draft.Title,
		Keywords:     strings.Join(draft.Tags, ","),
		CanonicalURL: canonicalURL(s.opts.SiteBaseURL, draft.Title),
		Indexing:     "index,follow",
		LastReviewed: s.now(),
	}
	if s.opts.SEOTitleFormat != "" {
		meta.Title = strings.NewReplacer(
			"{title}", draft.Title,
			"{site}", s.opts.SiteName,
			"{category}", categoryName,
		).Replace(s.opts.SEOTitleFormat)
	}

	if s.opts.SEOMetaPrompt != "" {
		messages := []domain.PromptMessage{
			{Role: domain.RoleSystem, Content: seoSystemPrompt},
			{Role: domain.RoleUser, Content: s.opts.SEOMetaPrompt +
				"\n\nTitle: " + draft.Title +
				"\nExcerpt: " + draft.Excerpt +
				"\nContent (truncated): " + clipRunes(stripTags(draft.Content), seoContentClip)},
		}
		if resp := s.gen.Complete(ctx, messages, model, maxTokensDefault, temperature); resp != "" {
			meta.Description = strings.TrimSpace(resp)
		}
	}
	if meta.Description == "" {
		meta.Description = fallbackDescription(draft.Content)
	}
	return meta
}

// fallbackDescription выводит описание из первых слов контента.
func fallbackDescription(content string) string {
	desc := trimWords(stripTags(content), descriptionWordLimit)
	runes := []rune(desc)
	if len(runes) > descriptionMaxRunes {
		desc = string(runes[:descriptionCutRunes]) + "…"
	}
	return desc
}

func trimWords(text string, limit int) string {
	words := strings.Fields(text)
	if len(words) > limit {
		words = words[:limit]
	}
	return strings.Join(words, " ")
}

var slugRe = regexp.MustCompile(`[^a-z0-9а-яё]+`)

// canonicalURL строит канонический адрес поста из базового URL сайта
// и слага заголовка. Пустой базовый URL даёт пустой канонический.
func canonicalURL(baseURL, title string) string {
	if baseURL == "" {
		return ""
	}
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if slug == "" {
		return baseURL
	}
	return strings.TrimRight(baseURL, "/") + "/" + slug
}

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
