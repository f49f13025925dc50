package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-blog-bot/internal/adapters/prompt"
	"ai-blog-bot/internal/domain"
	"ai-blog-bot/internal/infra/metrics"
)

// ErrProviderNotConfigured возвращается когда ключ провайдера не задан.
var ErrProviderNotConfigured = errors.New("ключ API провайдера не задан")

const (
	runLockTTL          = 30 * time.Minute
	progressRunningTTL  = 30 * time.Minute
	progressTerminalTTL = 10 * time.Minute

	totalSteps = 8

	recentTitlesDays  = 120
	recentTitlesLimit = 50

	maxTokensContent = 1800
	maxTokensDefault = 600
)

// Options задаёт глобальные настройки пайплайна. Оркестратор не
// читает окружение сам: все значения приходят явно.
type Options struct {
	GlobalInstructions string
	ContentTemplate    string
	SiteName           string
	SiteBaseURL        string
	SEOTitleFormat     string
	SEOMetaPrompt      string
	DefaultModel       string
	DefaultTemperature float64
	DefaultPostStatus  string
	DefaultCategoryID  int64
	AuthorID           int64
}

type credentials interface {
	HasCredentials() bool
}

// Service оркестрирует пайплайн генерации поста: подзадачи LLM,
// дедупликацию, коммит и обогащение. Шаги строго последовательны,
// прогресс перезаписывается на каждом переходе.
type Service struct {
	bots     domain.BotRepo
	content  domain.ContentRepo
	gen      domain.Generator
	refctx   domain.ContextBuilder
	dedup    domain.Deduper
	images   domain.ImageResolver
	progress domain.ProgressStore
	lock     domain.RunLock
	creds    credentials
	opts     Options
	log      zerolog.Logger
	now      func() time.Time
}

// NewService создаёт оркестратор генерации.
func NewService(
	bots domain.BotRepo,
	content domain.ContentRepo,
	gen domain.Generator,
	refctx domain.ContextBuilder,
	dedup domain.Deduper,
	images domain.ImageResolver,
	progress domain.ProgressStore,
	lock domain.RunLock,
	creds credentials,
	opts Options,
	logger zerolog.Logger,
) *Service {
	if opts.DefaultModel == "" {
		opts.DefaultModel = "gpt-3.5-turbo"
	}
	if opts.DefaultTemperature == 0 {
		opts.DefaultTemperature = 0.7
	}
	if opts.DefaultPostStatus == "" {
		opts.DefaultPostStatus = "draft"
	}
	if opts.AuthorID == 0 {
		opts.AuthorID = 1
	}
	return &Service{
		bots:     bots,
		content:  content,
		gen:      gen,
		refctx:   refctx,
		dedup:    dedup,
		images:   images,
		progress: progress,
		lock:     lock,
		creds:    creds,
		opts:     opts,
		log:      logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// pipelineDraft накапливает выходы подзадач до коммита.
type pipelineDraft struct {
	Title       string
	Content     string
	Excerpt     string
	Tags        []string
	TagsRaw     string
	ImagePrompt string
}

// pipelineStop описывает досрочный выход пайплайна.
type pipelineStop struct {
	outcome domain.Outcome
	reason  string
	step    int
}

// Run выполняет полный пайплайн для бота. Ошибки подзадач и
// дубликаты кодируются в RunResult; err не-nil только при отказе
// инфраструктуры до старта пайплайна.
func (s *Service) Run(ctx context.Context, botID int64) (domain.RunResult, error) {
	start := s.now()

	bot, err := s.bots.GetBot(ctx, botID)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("загрузка бота: %w", err)
	}

	// Без ключа провайдера задача отклоняется сразу, прогресс
	// не трогаем: наблюдатель продолжает видеть idle.
	if s.creds != nil && !s.creds.HasCredentials() {
		s.log.Error().Int64("bot_id", botID).Msg("generate: ключ API не задан")
		return domain.RunResult{Outcome: domain.OutcomeFailed, Reason: ErrProviderNotConfigured.Error()}, nil
	}

	acquired, err := s.lock.TryAcquire(ctx, botID, runLockTTL)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("захват блокировки: %w", err)
	}
	if !acquired {
		s.log.Info().Int64("bot_id", botID).Msg("generate: бот уже выполняет задачу")
		return domain.RunResult{Outcome: domain.OutcomeBusy, Reason: "generation already running"}, nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), botID); err != nil {
			s.log.Error().Err(err).Int64("bot_id", botID).Msg("generate: не удалось снять блокировку")
		}
	}()

	s.setProgress(ctx, botID, domain.ProgressRunning, "Queued…", 0, 0)

	draft, stop := s.runPipeline(ctx, bot, false)
	if stop != nil {
		result := domain.RunResult{Outcome: stop.outcome, Reason: stop.reason}
		s.finishProgress(ctx, botID, *stop, 0)
		metrics.ObserveGeneration(string(stop.outcome), start)
		s.log.Warn().Int64("bot_id", botID).Str("outcome", string(stop.outcome)).Str("reason", stop.reason).Msg("generate: пайплайн остановлен")
		return result, nil
	}

	postID, stop := s.commit(ctx, bot, draft)
	if stop != nil {
		s.finishProgress(ctx, botID, *stop, 0)
		metrics.ObserveGeneration(string(stop.outcome), start)
		return domain.RunResult{Outcome: stop.outcome, Reason: stop.reason}, nil
	}

	s.setProgress(ctx, botID, domain.ProgressRunning, "Setting featured image…", 8, 0)
	if _, err := s.images.Resolve(ctx, bot, postID, draft.ImagePrompt, draft.Title); err != nil {
		// Обложка обогащение, не условие успеха.
		s.log.Error().Err(err).Int64("bot_id", botID).Int64("post_id", postID).Msg("generate: не удалось подобрать обложку")
	}

	s.finishProgress(ctx, botID, pipelineStop{
		outcome: domain.OutcomeDone,
		reason:  fmt.Sprintf("Post created #%d", postID),
		step:    totalSteps,
	}, postID)
	metrics.ObserveGeneration(string(domain.OutcomeDone), start)
	s.log.Info().Int64("bot_id", botID).Int64("post_id", postID).Msg("generate: пост создан")
	return domain.RunResult{Outcome: domain.OutcomeDone, PostID: postID}, nil
}

// Preview выполняет пайплайн в холостом режиме: все подзадачи и
// проверки дубликатов отрабатывают, но пост не создаётся, обложка
// не подбирается и прогресс не пишется.
func (s *Service) Preview(ctx context.Context, botID int64) (domain.Draft, error) {
	bot, err := s.bots.GetBot(ctx, botID)
	if err != nil {
		return domain.Draft{}, fmt.Errorf("загрузка бота: %w", err)
	}
	if s.creds != nil && !s.creds.HasCredentials() {
		return domain.Draft{}, ErrProviderNotConfigured
	}
	draft, stop := s.runPipeline(ctx, bot, true)
	if stop != nil {
		return domain.Draft{}, errors.New(stop.reason)
	}
	return domain.Draft{
		Title:       draft.Title,
		Content:     draft.Content,
		Excerpt:     draft.Excerpt,
		Tags:        draft.TagsRaw,
		ImagePrompt: draft.ImagePrompt,
	}, nil
}

// Progress возвращает наблюдаемое состояние задачи бота.
func (s *Service) Progress(ctx context.Context, botID int64) (domain.Progress, error) {
	return s.progress.Get(ctx, botID)
}

// runPipeline выполняет шаги генерации и дедупликации, общие для
// боевого и холостого режимов. В холостом режиме прогресс не пишется.
func (s *Service) runPipeline(ctx context.Context, bot domain.Bot, dryRun bool) (pipelineDraft, *pipelineStop) {
	referenceContext := s.refctx.Build(ctx, bot)

	since := s.now().AddDate(0, 0, -recentTitlesDays)
	recentTitles, err := s.content.ListRecentTitles(ctx, since, recentTitlesLimit)
	if err != nil {
		// Контекст недавних заголовков необязателен.
		s.log.Error().Err(err).Int64("bot_id", bot.ID).Msg("generate: не удалось получить недавние заголовки")
		recentTitles = nil
	}

	model := bot.Model
	if model == "" {
		model = s.opts.DefaultModel
	}
	temperature := s.opts.DefaultTemperature
	if bot.Temperature != nil {
		temperature = *bot.Temperature
	}

	complete := func(task domain.TaskLabel, taskPrompt string, maxTokens int) string {
		messages := prompt.Compose(prompt.Input{
			Task:               task,
			TaskPrompt:         taskPrompt,
			GeneralPrompt:      bot.Prompts.General,
			GlobalInstructions: s.opts.GlobalInstructions,
			ReferenceContext:   referenceContext,
			RecentTitles:       recentTitles,
			ContentTemplate:    s.opts.ContentTemplate,
		})
		return strings.TrimSpace(s.gen.Complete(ctx, messages, model, maxTokens, temperature))
	}

	progress := func(message string, step int) {
		if !dryRun {
			s.setProgress(ctx, bot.ID, domain.ProgressRunning, message, step, 0)
		}
	}

	var draft pipelineDraft

	progress("Generating title…", 1)
	draft.Title = NormalizeTitle(complete(domain.TaskTitle, bot.Prompts.Title, maxTokensDefault))
	if draft.Title == "" {
		return draft, &pipelineStop{outcome: domain.OutcomeFailed, reason: "No title generated — aborting.", step: 1}
	}

	progress("Generating content…", 2)
	draft.Content = complete(domain.TaskContent, bot.Prompts.Content, maxTokensContent)
	progress("Generating excerpt…", 3)
	draft.Excerpt = complete(domain.TaskExcerpt, bot.Prompts.Excerpt, maxTokensDefault)
	progress("Generating tags…", 4)
	draft.TagsRaw = complete(domain.TaskTags, bot.Prompts.Tags, maxTokensDefault)
	draft.Tags = splitTags(draft.TagsRaw)
	progress("Preparing image prompt…", 5)
	draft.ImagePrompt = complete(domain.TaskImage, bot.Prompts.Image, maxTokensDefault)

	if draft.Content == "" {
		return draft, &pipelineStop{outcome: domain.OutcomeFailed, reason: "Missing title or content — aborting.", step: 5}
	}

	if dup, _ := s.dedup.CheckTitle(ctx, draft.Title); dup {
		s.log.Info().Int64("bot_id", bot.ID).Str("title", draft.Title).Msg("generate: пропуск, похожий заголовок уже существует")
		return draft, &pipelineStop{outcome: domain.OutcomeSkipped, reason: "Skipped: similar title already exists.", step: 5}
	}
	if dup, postID := s.dedup.CheckSemantic(ctx, bot, draft.Title, draft.Excerpt); dup {
		s.log.Info().Int64("bot_id", bot.ID).Int64("similar_post_id", postID).Msg("generate: пропуск, семантический дубликат")
		return draft, &pipelineStop{outcome: domain.OutcomeSkipped, reason: "Skipped: too similar to existing post (semantic).", step: 5}
	}

	return draft, nil
}

// commit собирает SEO-метаданные и создаёт пост. SEO вычисляется до
// вставки: созданная запись не изменяется.
func (s *Service) commit(ctx context.Context, bot domain.Bot, draft pipelineDraft) (int64, *pipelineStop) {
	status := bot.PostStatus
	if status == "" {
		status = s.opts.DefaultPostStatus
	}
	category := bot.CategoryID
	if category == 0 {
		category = s.opts.DefaultCategoryID
	}

	s.setProgress(ctx, bot.ID, domain.ProgressRunning, "Creating post…", 6, 0)

	categoryName, err := s.content.GetCategoryName(ctx, category)
	if err != nil {
		s.log.Error().Err(err).Int64("category_id", category).Msg("generate: не удалось получить рубрику")
		categoryName = ""
	}

	model := bot.Model
	if model == "" {
		model = s.opts.DefaultModel
	}
	temperature := s.opts.DefaultTemperature
	if bot.Temperature != nil {
		temperature = *bot.Temperature
	}

	s.setProgress(ctx, bot.ID, domain.ProgressRunning, "Applying SEO fields…", 7, 0)
	seo := s.composeSEO(ctx, draft, categoryName, model, temperature)

	postID, err := s.content.CreatePost(ctx, domain.Post{
		Title:      draft.Title,
		Content:    draft.Content,
		Excerpt:    draft.Excerpt,
		Tags:       draft.Tags,
		Status:     status,
		AuthorID:   s.opts.AuthorID,
		CategoryID: category,
		SEO:        seo,
	})
	if err != nil {
		s.log.Error().Err(err).Int64("bot_id", bot.ID).Msg("generate: не удалось создать пост")
		return 0, &pipelineStop{outcome: domain.OutcomeFailed, reason: "Failed to create post.", step: 6}
	}
	return postID, nil
}

func (s *Service) setProgress(ctx context.Context, botID int64, status domain.ProgressStatus, message string, step int, postID int64) {
	p := domain.Progress{
		Status:    status,
		Message:   message,
		Step:      step,
		Total:     totalSteps,
		Timestamp: s.now(),
		PostID:    postID,
	}
	ttl := progressRunningTTL
	if status != domain.ProgressRunning {
		ttl = progressTerminalTTL
	}
	if err := s.progress.Set(ctx, botID, p, ttl); err != nil {
		s.log.Error().Err(err).Int64("bot_id", botID).Msg("generate: не удалось записать прогресс")
	}
}

// finishProgress переводит запись прогресса в терминальный статус.
func (s *Service) finishProgress(ctx context.Context, botID int64, stop pipelineStop, postID int64) {
	status := domain.ProgressError
	switch stop.outcome {
	case domain.OutcomeDone:
		status = domain.ProgressDone
	case domain.OutcomeSkipped:
		status = domain.ProgressSkipped
	}
	s.setProgress(ctx, botID, status, stop.reason, stop.step, postID)
}

// splitTags разбирает строку тегов, разделённых запятыми.
func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}
