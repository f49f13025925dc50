package refcontext

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ai-blog-bot/internal/infra/metrics"
)

// fetchSiteSummary скачивает страницу и превращает её в короткую
// текстовую выжимку: без разметки, со схлопнутыми пробелами,
// не длиннее 800 символов. Пустая строка означает неудачу.
func (b *Builder) fetchSiteSummary(ctx context.Context, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	start := time.Now()
	resp, err := b.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("refcontext", "fetch_example", url, start, err)
		b.log.Warn().Err(err).Str("url", url).Msg("refcontext: сайт-пример недоступен")
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		metrics.ObserveNetworkRequest("refcontext", "fetch_example", url, start, fmt.Errorf("status %d", resp.StatusCode))
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("refcontext", "fetch_example", url, start, err)
		b.log.Warn().Err(err).Str("url", url).Msg("refcontext: ошибка разбора страницы")
		return ""
	}
	metrics.ObserveNetworkRequest("refcontext", "fetch_example", url, start, nil)

	doc.Find("script, style, noscript").Remove()
	text := doc.Text()
	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if text == "" {
		return ""
	}
	runes := []rune(text)
	if len(runes) > summaryClip {
		text = string(runes[:summaryClip]) + "…"
	}
	return text
}
