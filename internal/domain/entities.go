package domain

import "time"

// Schedule задаёт интервал запуска бота.
type Schedule string

const (
	// ScheduleHourly запуск каждый час.
	ScheduleHourly Schedule = "hourly"
	// ScheduleTwiceDaily запуск дважды в день.
	ScheduleTwiceDaily Schedule = "twicedaily"
	// ScheduleDaily запуск раз в день.
	ScheduleDaily Schedule = "daily"
	// ScheduleWeekly запуск раз в неделю.
	ScheduleWeekly Schedule = "weekly"
)

// Interval возвращает длительность интервала расписания.
// Неизвестные значения трактуются как daily.
func (s Schedule) Interval() time.Duration {
	switch s {
	case ScheduleHourly:
		return time.Hour
	case ScheduleTwiceDaily:
		return 12 * time.Hour
	case ScheduleWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// BotPrompts содержит промпты бота по подзадачам генерации.
type BotPrompts struct {
	General string
	Title   string
	Content string
	Excerpt string
	Tags    string
	Image   string
}

// Bot описывает настроенного агента генерации контента.
// Для оркестратора бот доступен только на чтение; LastRun
// обновляет только планировщик.
type Bot struct {
	ID                 int64
	Name               string
	Enabled            bool
	Schedule           Schedule
	Model              string
	Temperature        *float64
	PostStatus         string
	CategoryID         int64
	ImageCategoryID    int64
	ExampleCategoryIDs []int64
	LibraryDocIDs      []int64
	FallbackImageIDs   []int64
	Prompts            BotPrompts
	SemanticDedup      bool
	SemanticThreshold  float64
	LastRun            time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SEOMeta содержит SEO-метаданные поста.
type SEOMeta struct {
	Title        string
	Description  string
	Keywords     string
	CanonicalURL string
	Indexing     string
	LastReviewed time.Time
}

// Post представляет создаваемую запись блога. Ядро только
// собирает поля и передаёт их репозиторию; после создания
// запись не изменяется.
type Post struct {
	ID         int64
	Title      string
	Content    string
	Excerpt    string
	Tags       []string
	Status     string
	AuthorID   int64
	CategoryID int64
	SEO        SEOMeta
	CreatedAt  time.Time
}

// Asset описывает файл в хранилище медиа.
type Asset struct {
	ID         int64
	Path       string
	MimeType   string
	Title      string
	AltText    string
	CategoryID int64
	CreatedAt  time.Time
}

// ExampleSite описывает внешний сайт-пример с кэшированной выжимкой.
type ExampleSite struct {
	ID              int64
	Title           string
	URL             string
	Summary         string
	SummaryCachedAt time.Time
}

// LibraryDoc описывает документ библиотеки знаний бота.
type LibraryDoc struct {
	ID   int64
	Path string
	Ext  string
}

// Draft содержит собранные поля генерации до коммита,
// в том числе для режима предпросмотра.
type Draft struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Excerpt     string `json:"excerpt"`
	Tags        string `json:"tags"`
	ImagePrompt string `json:"image_description"`
}

// Outcome описывает терминальное состояние задачи генерации.
type Outcome string

const (
	// OutcomeDone пост создан.
	OutcomeDone Outcome = "done"
	// OutcomeSkipped генерация пропущена из-за дубликата.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed генерация завершилась ошибкой.
	OutcomeFailed Outcome = "failed"
	// OutcomeBusy бот уже выполняет задачу.
	OutcomeBusy Outcome = "busy"
)

// RunResult возвращается оркестратором по завершении задачи.
type RunResult struct {
	Outcome Outcome
	Reason  string
	PostID  int64
}

// ProgressStatus задаёт статус записи прогресса.
type ProgressStatus string

const (
	// ProgressIdle бот простаивает, записи нет.
	ProgressIdle ProgressStatus = "idle"
	// ProgressRunning задача выполняется.
	ProgressRunning ProgressStatus = "running"
	// ProgressDone задача завершена успешно.
	ProgressDone ProgressStatus = "done"
	// ProgressError задача завершена ошибкой.
	ProgressError ProgressStatus = "error"
	// ProgressSkipped задача пропущена (дубликат).
	ProgressSkipped ProgressStatus = "skipped"
)

// Progress описывает наблюдаемое состояние задачи генерации бота.
// Перезаписывается на каждом переходе шага; терминальные статусы
// done/error/skipped сигнализируют опросчику остановиться.
type Progress struct {
	Status    ProgressStatus `json:"status"`
	Message   string         `json:"message"`
	Step      int            `json:"step"`
	Total     int            `json:"total"`
	Timestamp time.Time      `json:"ts"`
	PostID    int64          `json:"post_id,omitempty"`
}

// PromptRole задаёт роль сообщения в диалоге с моделью.
type PromptRole string

const (
	// RoleSystem системная инструкция.
	RoleSystem PromptRole = "system"
	// RoleUser пользовательский промпт.
	RoleUser PromptRole = "user"
)

// PromptMessage одно сообщение промпта для chat completions.
type PromptMessage struct {
	Role    PromptRole
	Content string
}

// TaskLabel метка подзадачи генерации.
type TaskLabel string

const (
	// TaskTitle генерация заголовка.
	TaskTitle TaskLabel = "title"
	// TaskContent генерация контента.
	TaskContent TaskLabel = "content"
	// TaskExcerpt генерация анонса.
	TaskExcerpt TaskLabel = "excerpt"
	// TaskTags генерация тегов.
	TaskTags TaskLabel = "tags"
	// TaskImage генерация описания обложки.
	TaskImage TaskLabel = "image"
	// TaskSEO генерация SEO-описания.
	TaskSEO TaskLabel = "seo"
)
