package domain

import (
	"context"
	"time"
)

// BotRepo управляет ботами.
type BotRepo interface {
	GetBot(ctx context.Context, id int64) (Bot, error)
	ListEnabledBots(ctx context.Context) ([]Bot, error)
	UpdateLastRun(ctx context.Context, id int64, at time.Time) error
}

// ContentRepo управляет записями блога. Все операции атомарны
// и немедленно консистентны.
type ContentRepo interface {
	CreatePost(ctx context.Context, post Post) (int64, error)
	TitleExists(ctx context.Context, title string) (bool, error)
	ListRecentTitles(ctx context.Context, since time.Time, limit int) ([]string, error)
	ListRecentPublishedIDs(ctx context.Context, limit int) ([]int64, error)
	GetPostTitle(ctx context.Context, id int64) (string, error)
	GetCategoryName(ctx context.Context, id int64) (string, error)
}

// EmbeddingRepo кэширует эмбеддинги заголовков по постам.
// Однажды вычисленный вектор переиспользуется, пока существует пост.
type EmbeddingRepo interface {
	GetTitleEmbedding(ctx context.Context, postID int64) ([]float64, error)
	SaveTitleEmbedding(ctx context.Context, postID int64, vec []float64) error
}

// ExampleRepo управляет сайтами-примерами и кэшем их выжимок.
type ExampleRepo interface {
	ListByCategories(ctx context.Context, categoryIDs []int64, limit int) ([]ExampleSite, error)
	SaveSummary(ctx context.Context, id int64, summary string, cachedAt time.Time) error
}

// MediaRepo даёт доступ к метаданным медиабиблиотеки.
type MediaRepo interface {
	ListImagesByCategory(ctx context.Context, categoryID int64, limit int) ([]Asset, error)
	GetAssets(ctx context.Context, ids []int64) ([]Asset, error)
	GetLibraryDocs(ctx context.Context, ids []int64) ([]LibraryDoc, error)
}

// AssetStore сохраняет файлы и привязывает их к постам.
type AssetStore interface {
	StoreBytes(ctx context.Context, name string, mime string, data []byte) (Asset, error)
	StoreFromURL(ctx context.Context, url string) (Asset, error)
	AttachToPost(ctx context.Context, assetID, postID int64) error
	SetAltText(ctx context.Context, assetID int64, alt string) error
}

// ProgressStore хранит короткоживущие записи прогресса по ботам.
// Get возвращает запись со статусом idle, если записи нет.
type ProgressStore interface {
	Set(ctx context.Context, botID int64, p Progress, ttl time.Duration) error
	Get(ctx context.Context, botID int64) (Progress, error)
}

// RunLock исключает параллельные запуски одного бота. TTL ограничивает
// время удержания, чтобы упавший процесс не блокировал бота навсегда.
type RunLock interface {
	TryAcquire(ctx context.Context, botID int64, ttl time.Duration) (bool, error)
	Release(ctx context.Context, botID int64) error
}

// Generator выполняет подзадачи генерации через LLM-провайдера.
// Любая транспортная ошибка поглощается: Complete возвращает пустую
// строку, Embed — nil, GenerateImage — ok=false.
type Generator interface {
	Complete(ctx context.Context, messages []PromptMessage, model string, maxTokens int, temperature float64) string
	Embed(ctx context.Context, text string) []float64
	GenerateImage(ctx context.Context, prompt string) (Asset, bool)
}

// ContextBuilder собирает справочный контекст бота: документы
// библиотеки и выжимки сайтов-примеров.
type ContextBuilder interface {
	Build(ctx context.Context, bot Bot) string
}

// Deduper проверяет кандидата на дубликат двумя ярусами.
type Deduper interface {
	// CheckTitle выполняет точное и нечёткое сравнение заголовка
	// с недавними постами.
	CheckTitle(ctx context.Context, title string) (bool, string)
	// CheckSemantic сравнивает эмбеддинг кандидата с последними
	// опубликованными постами; возвращает id совпавшего поста.
	CheckSemantic(ctx context.Context, bot Bot, title, excerpt string) (bool, int64)
}

// ImageResolver подбирает обложку для созданного поста. Цепочка
// стратегий завершается синтезированной заглушкой и не может
// закончиться без результата при штатной работе.
type ImageResolver interface {
	Resolve(ctx context.Context, bot Bot, postID int64, imagePrompt, title string) (Asset, error)
}

// Notifier сообщает администратору о терминальных исходах задач.
type Notifier interface {
	NotifyResult(ctx context.Context, bot Bot, result RunResult)
}
