package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ai-blog-bot/internal/domain"
	"ai-blog-bot/internal/infra/metrics"
)

// Скачиваемые изображения провайдера не бывают больше нескольких
// мегабайт; лимит страхует от битых ответов.
const maxDownloadBytes = 32 << 20

type metaRepo interface {
	InsertAsset(ctx context.Context, asset domain.Asset) (int64, error)
	AttachAssetToPost(ctx context.Context, assetID, postID int64) error
	UpdateAssetAlt(ctx context.Context, assetID int64, alt string) error
}

// Store реализует domain.AssetStore: файлы на диске, метаданные
// в репозитории.
type Store struct {
	dir  string
	meta metaRepo
	http *http.Client
}

// NewStore создаёт хранилище в указанном каталоге.
func NewStore(dir string, meta metaRepo) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("создание каталога медиа: %w", err)
	}
	return &Store{dir: dir, meta: meta, http: &http.Client{Timeout: 60 * time.Second}}, nil
}

var _ domain.AssetStore = (*Store)(nil)

// StoreBytes сохраняет файл и регистрирует его в метаданных.
func (s *Store) StoreBytes(ctx context.Context, name, mime string, data []byte) (domain.Asset, error) {
	fileName := uuid.NewString() + "-" + filepath.Base(name)
	path := filepath.Join(s.dir, fileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return domain.Asset{}, fmt.Errorf("запись файла: %w", err)
	}
	asset := domain.Asset{
		Path:     path,
		MimeType: mime,
		Title:    name,
	}
	id, err := s.meta.InsertAsset(ctx, asset)
	if err != nil {
		_ = os.Remove(path)
		return domain.Asset{}, fmt.Errorf("регистрация файла: %w", err)
	}
	asset.ID = id
	return asset, nil
}

// StoreFromURL скачивает файл по ссылке и сохраняет его.
func (s *Store) StoreFromURL(ctx context.Context, url string) (domain.Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("запрос файла: %w", err)
	}
	start := time.Now()
	resp, err := s.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("assets", "download", "provider", start, err)
		return domain.Asset{}, fmt.Errorf("скачивание файла: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		err = fmt.Errorf("скачивание файла: статус %d", resp.StatusCode)
		metrics.ObserveNetworkRequest("assets", "download", "provider", start, err)
		return domain.Asset{}, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		metrics.ObserveNetworkRequest("assets", "download", "provider", start, err)
		return domain.Asset{}, fmt.Errorf("чтение файла: %w", err)
	}
	metrics.ObserveNetworkRequest("assets", "download", "provider", start, nil)

	mime := resp.Header.Get("Content-Type")
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if mime == "" {
		mime = "image/png"
	}
	name := fmt.Sprintf("ai-image-%d.png", time.Now().Unix())
	return s.StoreBytes(ctx, name, mime, data)
}

// AttachToPost назначает файл обложкой поста.
func (s *Store) AttachToPost(ctx context.Context, assetID, postID int64) error {
	return s.meta.AttachAssetToPost(ctx, assetID, postID)
}

// SetAltText обновляет alt-текст файла.
func (s *Store) SetAltText(ctx context.Context, assetID int64, alt string) error {
	return s.meta.UpdateAssetAlt(ctx, assetID, alt)
}
