package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ai-blog-bot/internal/domain"
)

type stubContent struct {
	exists       bool
	titles       []string
	publishedIDs []int64
	postTitles   map[int64]string
}

func (s *stubContent) CreatePost(context.Context, domain.Post) (int64, error) { return 0, nil }
func (s *stubContent) TitleExists(context.Context, string) (bool, error)      { return s.exists, nil }
func (s *stubContent) ListRecentTitles(context.Context, time.Time, int) ([]string, error) {
	return s.titles, nil
}
func (s *stubContent) ListRecentPublishedIDs(context.Context, int) ([]int64, error) {
	return s.publishedIDs, nil
}
func (s *stubContent) GetPostTitle(_ context.Context, id int64) (string, error) {
	return s.postTitles[id], nil
}
func (s *stubContent) GetCategoryName(context.Context, int64) (string, error) { return "", nil }

type stubEmbeddings struct {
	vectors map[int64][]float64
	saved   map[int64][]float64
}

func (s *stubEmbeddings) GetTitleEmbedding(_ context.Context, postID int64) ([]float64, error) {
	return s.vectors[postID], nil
}
func (s *stubEmbeddings) SaveTitleEmbedding(_ context.Context, postID int64, vec []float64) error {
	if s.saved == nil {
		s.saved = map[int64][]float64{}
	}
	s.saved[postID] = vec
	return nil
}

type stubEmbedder struct {
	vectors map[string][]float64
}

func (s *stubEmbedder) Embed(_ context.Context, text string) []float64 {
	return s.vectors[text]
}

func TestCheckTitleExactMatch(t *testing.T) {
	engine := NewEngine(&stubContent{exists: true}, &stubEmbeddings{}, nil, zerolog.Nop())
	dup, reason := engine.CheckTitle(context.Background(), "Как выбрать велосипед")
	if !dup {
		t.Fatalf("ожидали дубликат при точном совпадении")
	}
	if reason == "" {
		t.Fatalf("ожидали причину пропуска")
	}
}

func TestCheckTitleFuzzyMatch(t *testing.T) {
	content := &stubContent{titles: []string{"Как выбрать зимнюю резину для города"}}
	engine := NewEngine(content, &stubEmbeddings{}, nil, zerolog.Nop())

	// Регистр не влияет на сравнение.
	dup, _ := engine.CheckTitle(context.Background(), "КАК ВЫБРАТЬ ЗИМНЮЮ РЕЗИНУ ДЛЯ ГОРОДОВ")
	if !dup {
		t.Fatalf("ожидали нечёткий дубликат")
	}

	dup, _ = engine.CheckTitle(context.Background(), "Рецепт борща на зиму")
	if dup {
		t.Fatalf("непохожий заголовок не дубликат")
	}
}

func TestCheckSemanticDisabled(t *testing.T) {
	engine := NewEngine(&stubContent{}, &stubEmbeddings{}, &stubEmbedder{}, zerolog.Nop())
	dup, _ := engine.CheckSemantic(context.Background(), domain.Bot{SemanticDedup: false}, "заголовок", "анонс")
	if dup {
		t.Fatalf("выключенный ярус не должен находить дубликаты")
	}
}

func TestCheckSemanticDuplicate(t *testing.T) {
	content := &stubContent{publishedIDs: []int64{11}}
	embeddings := &stubEmbeddings{vectors: map[int64][]float64{11: {1, 0}}}
	embedder := &stubEmbedder{vectors: map[string][]float64{
		"заголовок\n\nанонс": {0.99, 0.01},
	}}
	engine := NewEngine(content, embeddings, embedder, zerolog.Nop())

	dup, postID := engine.CheckSemantic(context.Background(), domain.Bot{SemanticDedup: true}, "заголовок", "анонс")
	if !dup {
		t.Fatalf("ожидали семантический дубликат")
	}
	if postID != 11 {
		t.Fatalf("ожидали id совпавшего поста, получили %d", postID)
	}
}

func TestCheckSemanticBelowThreshold(t *testing.T) {
	content := &stubContent{publishedIDs: []int64{11}}
	embeddings := &stubEmbeddings{vectors: map[int64][]float64{11: {1, 0}}}
	embedder := &stubEmbedder{vectors: map[string][]float64{
		"заголовок\n\nанонс": {0, 1},
	}}
	engine := NewEngine(content, embeddings, embedder, zerolog.Nop())

	dup, _ := engine.CheckSemantic(context.Background(), domain.Bot{SemanticDedup: true}, "заголовок", "анонс")
	if dup {
		t.Fatalf("ортогональные эмбеддинги не дубликат")
	}
}

func TestCheckSemanticComputesMissingEmbedding(t *testing.T) {
	content := &stubContent{
		publishedIDs: []int64{11},
		postTitles:   map[int64]string{11: "существующий заголовок"},
	}
	embeddings := &stubEmbeddings{}
	embedder := &stubEmbedder{vectors: map[string][]float64{
		"заголовок\n\nанонс":      {1, 0},
		"существующий заголовок": {1, 0},
	}}
	engine := NewEngine(content, embeddings, embedder, zerolog.Nop())

	dup, postID := engine.CheckSemantic(context.Background(), domain.Bot{SemanticDedup: true}, "заголовок", "анонс")
	if !dup || postID != 11 {
		t.Fatalf("ожидали дубликат по вычисленному эмбеддингу")
	}
	if len(embeddings.saved[11]) == 0 {
		t.Fatalf("вычисленный эмбеддинг должен кэшироваться")
	}
}

func TestCheckSemanticCustomThreshold(t *testing.T) {
	content := &stubContent{publishedIDs: []int64{11}}
	embeddings := &stubEmbeddings{vectors: map[int64][]float64{11: {1, 0.4}}}
	embedder := &stubEmbedder{vectors: map[string][]float64{
		"заголовок\n\nанонс": {1, 0},
	}}
	engine := NewEngine(content, embeddings, embedder, zerolog.Nop())

	// Близость около 0.93: дубликат при пороге по умолчанию,
	// не дубликат при повышенном.
	dup, _ := engine.CheckSemantic(context.Background(), domain.Bot{SemanticDedup: true}, "заголовок", "анонс")
	if !dup {
		t.Fatalf("ожидали дубликат при пороге по умолчанию")
	}
	dup, _ = engine.CheckSemantic(context.Background(), domain.Bot{SemanticDedup: true, SemanticThreshold: 0.98}, "заголовок", "анонс")
	if dup {
		t.Fatalf("повышенный порог должен пропускать кандидата")
	}
}
