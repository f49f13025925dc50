package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"ai-blog-bot/internal/domain"
	"ai-blog-bot/internal/infra/metrics"
)

// TelegramNotifier отправляет администратору итоги задач генерации.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    zerolog.Logger
}

var _ domain.Notifier = (*TelegramNotifier)(nil)

// NewTelegramNotifier создаёт нотификатор. Если токен или chatID
// не заданы, возвращает nil: уведомления опциональны.
func NewTelegramNotifier(token string, chatID int64, log zerolog.Logger) (*TelegramNotifier, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("инициализация телеграм-бота: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID, log: log}, nil
}

// NotifyResult сообщает о терминальном исходе задачи. Ошибки доставки
// только логируются: уведомление не влияет на результат генерации.
func (n *TelegramNotifier) NotifyResult(ctx context.Context, bot domain.Bot, result domain.RunResult) {
	var text string
	switch result.Outcome {
	case domain.OutcomeDone:
		text = fmt.Sprintf("✅ Бот «%s»: создан пост #%d", bot.Name, result.PostID)
	case domain.OutcomeSkipped:
		text = fmt.Sprintf("⏭ Бот «%s»: генерация пропущена — %s", bot.Name, result.Reason)
	case domain.OutcomeFailed:
		text = fmt.Sprintf("❌ Бот «%s»: ошибка генерации — %s", bot.Name, result.Reason)
	case domain.OutcomeBusy:
		return
	default:
		return
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	start := time.Now()
	_, err := n.bot.Send(msg)
	metrics.ObserveNetworkRequest("telegram_bot", "notify_result", strconv.FormatInt(bot.ID, 10), start, err)
	if err != nil {
		n.log.Error().Err(err).Int64("bot_id", bot.ID).Msg("не удалось отправить уведомление")
	}
}
