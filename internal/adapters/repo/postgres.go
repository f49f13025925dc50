package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"ai-blog-bot/internal/domain"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.BotRepo       = (*Postgres)(nil)
	_ domain.ContentRepo   = (*Postgres)(nil)
	_ domain.EmbeddingRepo = (*Postgres)(nil)
	_ domain.ExampleRepo   = (*Postgres)(nil)
	_ domain.MediaRepo     = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return p.connCtx()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

const botColumns = `id, name, enabled, schedule, model, temperature, post_status,
	category_id, image_category_id, example_category_ids, library_doc_ids, fallback_image_ids,
	general_prompt, title_prompt, content_prompt, excerpt_prompt, tags_prompt, image_prompt,
	semantic_dedup, semantic_threshold, last_run_at, created_at, updated_at`

func scanBot(row pgx.Row) (domain.Bot, error) {
	var bot domain.Bot
	var lastRun *time.Time
	err := row.Scan(
		&bot.ID, &bot.Name, &bot.Enabled, &bot.Schedule, &bot.Model, &bot.Temperature, &bot.PostStatus,
		&bot.CategoryID, &bot.ImageCategoryID, &bot.ExampleCategoryIDs, &bot.LibraryDocIDs, &bot.FallbackImageIDs,
		&bot.Prompts.General, &bot.Prompts.Title, &bot.Prompts.Content, &bot.Prompts.Excerpt, &bot.Prompts.Tags, &bot.Prompts.Image,
		&bot.SemanticDedup, &bot.SemanticThreshold, &lastRun, &bot.CreatedAt, &bot.UpdatedAt,
	)
	if err != nil {
		return domain.Bot{}, err
	}
	if lastRun != nil {
		bot.LastRun = *lastRun
	}
	return bot, nil
}

// GetBot возвращает бота по идентификатору.
func (p *Postgres) GetBot(ctx context.Context, id int64) (domain.Bot, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	row := p.pool.QueryRow(ctx, `SELECT `+botColumns+` FROM bots WHERE id = $1`, id)
	bot, err := scanBot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bot{}, fmt.Errorf("бот %d не найден", id)
		}
		return domain.Bot{}, fmt.Errorf("выборка бота: %w", err)
	}
	return bot, nil
}

// ListEnabledBots возвращает всех включённых ботов.
func (p *Postgres) ListEnabledBots(ctx context.Context) ([]domain.Bot, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	rows, err := p.pool.Query(ctx, `SELECT `+botColumns+` FROM bots WHERE enabled ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("выборка ботов: %w", err)
	}
	defer rows.Close()
	var bots []domain.Bot
	for rows.Next() {
		bot, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("чтение бота: %w", err)
		}
		bots = append(bots, bot)
	}
	return bots, rows.Err()
}

// UpdateLastRun фиксирует время последнего запуска бота.
func (p *Postgres) UpdateLastRun(ctx context.Context, id int64, at time.Time) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	_, err := p.pool.Exec(ctx, `UPDATE bots SET last_run_at = $2, updated_at = now() WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("обновление last_run: %w", err)
	}
	return nil
}

// CreatePost создаёт запись блога со всеми полями, включая SEO.
func (p *Postgres) CreatePost(ctx context.Context, post domain.Post) (int64, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	var id int64
	err := p.pool.QueryRow(ctx, `
		INSERT INTO posts (title, content, excerpt, tags, status, author_id, category_id,
			seo_title, seo_description, seo_keywords, canonical_url, indexing, last_reviewed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
		RETURNING id`,
		post.Title, post.Content, post.Excerpt, post.Tags, post.Status, post.AuthorID, post.CategoryID,
		post.SEO.Title, post.SEO.Description, post.SEO.Keywords, post.SEO.CanonicalURL, post.SEO.Indexing, post.SEO.LastReviewed,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("создание поста: %w", err)
	}
	return id, nil
}

// TitleExists проверяет точное совпадение заголовка.
func (p *Postgres) TitleExists(ctx context.Context, title string) (bool, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	var exists bool
	err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE title = $1)`, title).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("поиск заголовка: %w", err)
	}
	return exists, nil
}

// Черновики не попадают ни в подсказку недавних заголовков,
// ни в окно нечёткой дедупликации.
const recentTitlesQuery = `
	SELECT title FROM posts
	WHERE status = 'publish' AND created_at >= $1
	ORDER BY created_at DESC
	LIMIT $2`

// ListRecentTitles возвращает заголовки недавних опубликованных
// постов, новые первыми.
func (p *Postgres) ListRecentTitles(ctx context.Context, since time.Time, limit int) ([]string, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	rows, err := p.pool.Query(ctx, recentTitlesQuery, since, limit)
	if err != nil {
		return nil, fmt.Errorf("выборка заголовков: %w", err)
	}
	defer rows.Close()
	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("чтение заголовка: %w", err)
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// ListRecentPublishedIDs возвращает идентификаторы последних
// опубликованных постов.
func (p *Postgres) ListRecentPublishedIDs(ctx context.Context, limit int) ([]int64, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	rows, err := p.pool.Query(ctx, `
		SELECT id FROM posts
		WHERE status = 'publish'
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("выборка опубликованных постов: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("чтение идентификатора: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetPostTitle возвращает заголовок поста.
func (p *Postgres) GetPostTitle(ctx context.Context, id int64) (string, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	var title string
	err := p.pool.QueryRow(ctx, `SELECT title FROM posts WHERE id = $1`, id).Scan(&title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("выборка заголовка: %w", err)
	}
	return title, nil
}

// GetCategoryName возвращает название рубрики либо пустую строку.
func (p *Postgres) GetCategoryName(ctx context.Context, id int64) (string, error) {
	if id == 0 {
		return "", nil
	}
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	var name string
	err := p.pool.QueryRow(ctx, `SELECT name FROM categories WHERE id = $1`, id).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("выборка рубрики: %w", err)
	}
	return name, nil
}

// GetTitleEmbedding возвращает кэшированный эмбеддинг заголовка поста
// либо nil, если его ещё нет.
func (p *Postgres) GetTitleEmbedding(ctx context.Context, postID int64) ([]float64, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	var vec pgvector.Vector
	err := p.pool.QueryRow(ctx, `SELECT embedding FROM post_title_embeddings WHERE post_id = $1`, postID).Scan(&vec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("выборка эмбеддинга: %w", err)
	}
	return toFloat64(vec.Slice()), nil
}

// SaveTitleEmbedding сохраняет эмбеддинг заголовка поста.
func (p *Postgres) SaveTitleEmbedding(ctx context.Context, postID int64, vec []float64) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	_, err := p.pool.Exec(ctx, `
		INSERT INTO post_title_embeddings (post_id, embedding)
		VALUES ($1, $2)
		ON CONFLICT (post_id) DO UPDATE SET embedding = EXCLUDED.embedding`,
		postID, pgvector.NewVector(toFloat32(vec)))
	if err != nil {
		return fmt.Errorf("сохранение эмбеддинга: %w", err)
	}
	return nil
}

// ListByCategories возвращает сайты-примеры выбранных категорий.
func (p *Postgres) ListByCategories(ctx context.Context, categoryIDs []int64, limit int) ([]domain.ExampleSite, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	rows, err := p.pool.Query(ctx, `
		SELECT id, title, url, COALESCE(summary, ''), COALESCE(summary_cached_at, 'epoch'::timestamptz)
		FROM example_sites
		WHERE category_id = ANY($1)
		ORDER BY id
		LIMIT $2`, categoryIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("выборка примеров: %w", err)
	}
	defer rows.Close()
	var sites []domain.ExampleSite
	for rows.Next() {
		var site domain.ExampleSite
		if err := rows.Scan(&site.ID, &site.Title, &site.URL, &site.Summary, &site.SummaryCachedAt); err != nil {
			return nil, fmt.Errorf("чтение примера: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// SaveSummary кэширует выжимку сайта-примера.
func (p *Postgres) SaveSummary(ctx context.Context, id int64, summary string, cachedAt time.Time) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	_, err := p.pool.Exec(ctx, `UPDATE example_sites SET summary = $2, summary_cached_at = $3 WHERE id = $1`, id, summary, cachedAt)
	if err != nil {
		return fmt.Errorf("кэширование выжимки: %w", err)
	}
	return nil
}

const assetColumns = `id, path, mime_type, title, COALESCE(alt_text, ''), COALESCE(category_id, 0), created_at`

// ListImagesByCategory возвращает изображения категории медиабиблиотеки.
func (p *Postgres) ListImagesByCategory(ctx context.Context, categoryID int64, limit int) ([]domain.Asset, error) {
	if categoryID == 0 {
		return nil, nil
	}
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	rows, err := p.pool.Query(ctx, `
		SELECT `+assetColumns+` FROM assets
		WHERE category_id = $1 AND mime_type LIKE 'image/%'
		ORDER BY id
		LIMIT $2`, categoryID, limit)
	if err != nil {
		return nil, fmt.Errorf("выборка изображений категории: %w", err)
	}
	defer rows.Close()
	return collectAssets(rows)
}

// GetAssets возвращает файлы по идентификаторам.
func (p *Postgres) GetAssets(ctx context.Context, ids []int64) ([]domain.Asset, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	rows, err := p.pool.Query(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("выборка файлов: %w", err)
	}
	defer rows.Close()
	return collectAssets(rows)
}

// GetLibraryDocs возвращает документы библиотеки по идентификаторам.
func (p *Postgres) GetLibraryDocs(ctx context.Context, ids []int64) ([]domain.LibraryDoc, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	rows, err := p.pool.Query(ctx, `
		SELECT id, path, lower(substring(path from '\.([^.]+)$'))
		FROM assets WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("выборка документов: %w", err)
	}
	defer rows.Close()
	var docs []domain.LibraryDoc
	for rows.Next() {
		var doc domain.LibraryDoc
		var ext *string
		if err := rows.Scan(&doc.ID, &doc.Path, &ext); err != nil {
			return nil, fmt.Errorf("чтение документа: %w", err)
		}
		if ext != nil {
			doc.Ext = *ext
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// InsertAsset регистрирует файл в метаданных.
func (p *Postgres) InsertAsset(ctx context.Context, asset domain.Asset) (int64, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	var id int64
	err := p.pool.QueryRow(ctx, `
		INSERT INTO assets (path, mime_type, title, alt_text, category_id, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, 0), now())
		RETURNING id`,
		asset.Path, asset.MimeType, asset.Title, asset.AltText, asset.CategoryID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("регистрация файла: %w", err)
	}
	return id, nil
}

// AttachAssetToPost назначает файл обложкой поста, а также
// заполняет презентационные варианты обложки.
func (p *Postgres) AttachAssetToPost(ctx context.Context, assetID, postID int64) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	_, err := p.pool.Exec(ctx, `
		UPDATE posts
		SET featured_asset_id = $2,
			feat_image_desktop = $2,
			feat_image_mobile = $2,
			feat_image_social = $2
		WHERE id = $1`, postID, assetID)
	if err != nil {
		return fmt.Errorf("привязка обложки: %w", err)
	}
	return nil
}

// UpdateAssetAlt обновляет alt-текст файла.
func (p *Postgres) UpdateAssetAlt(ctx context.Context, assetID int64, alt string) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	_, err := p.pool.Exec(ctx, `UPDATE assets SET alt_text = $2 WHERE id = $1`, assetID, alt)
	if err != nil {
		return fmt.Errorf("обновление alt-текста: %w", err)
	}
	return nil
}

func collectAssets(rows pgx.Rows) ([]domain.Asset, error) {
	var out []domain.Asset
	for rows.Next() {
		var a domain.Asset
		if err := rows.Scan(&a.ID, &a.Path, &a.MimeType, &a.Title, &a.AltText, &a.CategoryID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("чтение файла: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func toFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}

func toFloat64(vec []float32) []float64 {
	if vec == nil {
		return nil
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}
