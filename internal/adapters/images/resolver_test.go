package images

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"ai-blog-bot/internal/domain"
)

type stubGenerator struct {
	asset domain.Asset
	ok    bool
}

func (s *stubGenerator) Complete(context.Context, []domain.PromptMessage, string, int, float64) string {
	return ""
}
func (s *stubGenerator) Embed(context.Context, string) []float64 { return nil }
func (s *stubGenerator) GenerateImage(context.Context, string) (domain.Asset, bool) {
	return s.asset, s.ok
}

type stubMedia struct {
	pool     []domain.Asset
	fallback []domain.Asset
}

func (s *stubMedia) ListImagesByCategory(context.Context, int64, int) ([]domain.Asset, error) {
	return s.pool, nil
}
func (s *stubMedia) GetAssets(context.Context, []int64) ([]domain.Asset, error) {
	return s.fallback, nil
}
func (s *stubMedia) GetLibraryDocs(context.Context, []int64) ([]domain.LibraryDoc, error) {
	return nil, nil
}

type stubAssets struct {
	stored   []byte
	attached map[int64]int64
	alts     map[int64]string
	nextID   int64
}

func (s *stubAssets) StoreBytes(_ context.Context, name, mime string, data []byte) (domain.Asset, error) {
	s.stored = data
	s.nextID++
	return domain.Asset{ID: s.nextID, Path: name, MimeType: mime}, nil
}
func (s *stubAssets) StoreFromURL(context.Context, string) (domain.Asset, error) {
	return domain.Asset{}, nil
}
func (s *stubAssets) AttachToPost(_ context.Context, assetID, postID int64) error {
	if s.attached == nil {
		s.attached = map[int64]int64{}
	}
	s.attached[postID] = assetID
	return nil
}
func (s *stubAssets) SetAltText(_ context.Context, assetID int64, alt string) error {
	if s.alts == nil {
		s.alts = map[int64]string{}
	}
	s.alts[assetID] = alt
	return nil
}

func newTestResolver(gen *stubGenerator, media *stubMedia, assets *stubAssets) *Resolver {
	return NewResolver(gen, media, assets, zerolog.Nop(), func(n int) int { return 0 })
}

func TestResolvePrefersGenerated(t *testing.T) {
	gen := &stubGenerator{asset: domain.Asset{ID: 42}, ok: true}
	media := &stubMedia{pool: []domain.Asset{{ID: 1}}}
	store := &stubAssets{}
	resolver := newTestResolver(gen, media, store)

	asset, err := resolver.Resolve(context.Background(), domain.Bot{ImageCategoryID: 5}, 9, "a red bicycle", "Заголовок")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if asset.ID != 42 {
		t.Fatalf("ожидали сгенерированное изображение, получили %d", asset.ID)
	}
	if store.attached[9] != 42 {
		t.Fatalf("обложка должна привязываться к посту")
	}
	if store.alts[42] != "a red bicycle" {
		t.Fatalf("alt-текст из описания, получили %q", store.alts[42])
	}
}

func TestResolveFallsBackToCategoryPool(t *testing.T) {
	gen := &stubGenerator{ok: false}
	media := &stubMedia{pool: []domain.Asset{{ID: 11}, {ID: 12}}}
	store := &stubAssets{}
	resolver := newTestResolver(gen, media, store)

	asset, err := resolver.Resolve(context.Background(), domain.Bot{ImageCategoryID: 5}, 9, "описание", "Заголовок")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if asset.ID != 11 {
		t.Fatalf("ожидали первый элемент пула, получили %d", asset.ID)
	}
}

func TestResolveFallsBackToFallbackList(t *testing.T) {
	gen := &stubGenerator{ok: false}
	media := &stubMedia{fallback: []domain.Asset{{ID: 21}}}
	store := &stubAssets{}
	resolver := newTestResolver(gen, media, store)

	asset, err := resolver.Resolve(context.Background(), domain.Bot{FallbackImageIDs: []int64{21}}, 9, "", "Заголовок")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if asset.ID != 21 {
		t.Fatalf("ожидали запасное изображение, получили %d", asset.ID)
	}
	if store.alts[21] != "Заголовок" {
		t.Fatalf("без описания alt берётся из заголовка, получили %q", store.alts[21])
	}
}

func TestResolvePlaceholderTerminal(t *testing.T) {
	gen := &stubGenerator{ok: false}
	media := &stubMedia{}
	store := &stubAssets{}
	resolver := newTestResolver(gen, media, store)

	asset, err := resolver.Resolve(context.Background(), domain.Bot{}, 9, "", "Заголовок")
	if err != nil {
		t.Fatalf("цепочка должна завершаться заглушкой: %v", err)
	}
	if asset.MimeType != "image/png" {
		t.Fatalf("заглушка — PNG, получили %q", asset.MimeType)
	}
	img, err := png.Decode(bytes.NewReader(store.stored))
	if err != nil {
		t.Fatalf("заглушка должна декодироваться как PNG: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 800 || bounds.Dy() != 600 {
		t.Fatalf("ожидали холст 800×600, получили %dx%d", bounds.Dx(), bounds.Dy())
	}
	if !strings.HasPrefix(asset.Path, "ai-generated-") {
		t.Fatalf("неожиданное имя файла заглушки: %q", asset.Path)
	}
}

func TestAttachAltTextStrippedAndClipped(t *testing.T) {
	gen := &stubGenerator{asset: domain.Asset{ID: 42}, ok: true}
	store := &stubAssets{}
	resolver := newTestResolver(gen, &stubMedia{}, store)

	long := "<b>" + strings.Repeat("я", 200) + "</b>"
	if _, err := resolver.Resolve(context.Background(), domain.Bot{}, 9, long, "Заголовок"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	alt := store.alts[42]
	if strings.Contains(alt, "<b>") {
		t.Fatalf("разметка должна сниматься: %q", alt)
	}
	if len([]rune(alt)) > 120 {
		t.Fatalf("alt длиннее 120 символов: %d", len([]rune(alt)))
	}
}
