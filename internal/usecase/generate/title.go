package generate

import (
	"regexp"
	"strings"
)

const titleMaxRunes = 60

var (
	prefixRe     = regexp.MustCompile(`(?i)^\s*(#+|[-*]\s+|Title\s*:\s*|H1\s*:\s*)`)
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Символы, снимаемые с краёв заголовка: кавычки, тире, двоеточия
// и управляющие пробельные.
const titleTrimSet = " \t\n\r\x00\x0B\"'`»«“”‚‘’—-:"

// NormalizeTitle приводит сырой ответ модели к одному чистому
// заголовку ограниченной длины. Пустой результат означает отказ
// подзадачи. Функция идемпотентна.
func NormalizeTitle(raw string) string {
	t := raw
	if idx := strings.IndexAny(t, "\r\n"); idx >= 0 {
		t = t[:idx]
	}
	t = prefixRe.ReplaceAllString(t, "")
	t = strings.Trim(t, titleTrimSet)
	t = tagRe.ReplaceAllString(t, "")
	t = whitespaceRe.ReplaceAllString(t, " ")
	t = strings.TrimSpace(t)
	runes := []rune(t)
	if len(runes) > titleMaxRunes {
		t = strings.TrimRight(string(runes[:titleMaxRunes]), " ,.;:-")
	}
	return t
}
