package prompt

import (
	"strings"

	"ai-blog-bot/internal/domain"
)

// Строковые константы промптов намеренно на английском:
// в таком виде их видит модель.
const (
	libraryPreamble      = "Reference library content (do not quote verbatim beyond fair use, use for facts and structure):\n"
	recentTitlesPreamble = "Existing posts on this site (avoid duplicating topics and angles):\n"
	titleConstraint      = `Return ONLY a single, human-readable SEO title on one line. Max 60 characters. No quotes, no surrounding punctuation, no prefixes like "Title:" or numbering, no markdown or code fences.`
	templateConstraint   = "Use EXACTLY the following HTML template structure. Keep the headings and id attributes. Replace the placeholder text with accurate, well-structured content about the topic. Return ONLY valid HTML filled with content, nothing else.\n"
)

// Input содержит исходные тексты для сборки промпта одной подзадачи.
type Input struct {
	Task               domain.TaskLabel
	TaskPrompt         string
	GeneralPrompt      string
	GlobalInstructions string
	ReferenceContext   string
	RecentTitles       []string
	ContentTemplate    string
}

// Compose собирает упорядоченный список сообщений для chat completions.
// Пустые источники пропускаются; пользовательский промпт всегда
// последним. Чистая функция без побочных эффектов.
func Compose(in Input) []domain.PromptMessage {
	if strings.TrimSpace(in.TaskPrompt) == "" {
		return nil
	}

	var messages []domain.PromptMessage
	addSystem := func(content string) {
		messages = append(messages, domain.PromptMessage{Role: domain.RoleSystem, Content: content})
	}

	if in.GlobalInstructions != "" {
		addSystem(in.GlobalInstructions)
	}
	if in.GeneralPrompt != "" {
		addSystem(in.GeneralPrompt)
	}
	if in.ReferenceContext != "" {
		addSystem(libraryPreamble + in.ReferenceContext)
	}
	if len(in.RecentTitles) > 0 {
		addSystem(recentTitlesPreamble + strings.Join(in.RecentTitles, "\n"))
	}
	if in.Task == domain.TaskTitle {
		addSystem(titleConstraint)
	}
	if in.Task == domain.TaskContent && in.ContentTemplate != "" {
		addSystem(templateConstraint + in.ContentTemplate)
	}

	messages = append(messages, domain.PromptMessage{Role: domain.RoleUser, Content: in.TaskPrompt})
	return messages
}
