package refcontext

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ai-blog-bot/internal/domain"
)

type stubMedia struct {
	docs []domain.LibraryDoc
}

func (s *stubMedia) ListImagesByCategory(context.Context, int64, int) ([]domain.Asset, error) {
	return nil, nil
}
func (s *stubMedia) GetAssets(context.Context, []int64) ([]domain.Asset, error) { return nil, nil }
func (s *stubMedia) GetLibraryDocs(context.Context, []int64) ([]domain.LibraryDoc, error) {
	return s.docs, nil
}

type stubExamples struct {
	sites []domain.ExampleSite
	saved map[int64]string
}

func (s *stubExamples) ListByCategories(context.Context, []int64, int) ([]domain.ExampleSite, error) {
	return s.sites, nil
}
func (s *stubExamples) SaveSummary(_ context.Context, id int64, summary string, _ time.Time) error {
	if s.saved == nil {
		s.saved = map[int64]string{}
	}
	s.saved[id] = summary
	return nil
}

type unavailablePDF struct{}

func (unavailablePDF) IsAvailable() bool              { return false }
func (unavailablePDF) Extract(string) (string, error) { return "", nil }

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("не удалось записать файл: %v", err)
	}
	return path
}

func TestBuildLibraryText(t *testing.T) {
	dir := t.TempDir()
	media := &stubMedia{docs: []domain.LibraryDoc{
		{ID: 1, Path: writeDoc(t, dir, "a.txt", "первый документ"), Ext: "txt"},
		{ID: 2, Path: writeDoc(t, dir, "b.md", "второй документ"), Ext: "md"},
	}}
	builder := NewBuilder(media, &stubExamples{}, nil, zerolog.Nop())

	got := builder.Build(context.Background(), domain.Bot{LibraryDocIDs: []int64{1, 2}})
	if !strings.Contains(got, "первый документ") || !strings.Contains(got, "второй документ") {
		t.Fatalf("ожидали оба документа: %q", got)
	}
	if !strings.Contains(got, "\n\n---\n\n") {
		t.Fatalf("документы разделяются разделителем: %q", got)
	}
}

func TestBuildLibraryTextCap(t *testing.T) {
	dir := t.TempDir()
	media := &stubMedia{docs: []domain.LibraryDoc{
		{ID: 1, Path: writeDoc(t, dir, "big.txt", strings.Repeat("а", 20000)), Ext: "txt"},
	}}
	builder := NewBuilder(media, &stubExamples{}, nil, zerolog.Nop())

	got := builder.Build(context.Background(), domain.Bot{LibraryDocIDs: []int64{1}})
	if len([]rune(got)) > 15000 {
		t.Fatalf("текст библиотеки длиннее капа: %d", len([]rune(got)))
	}
}

func TestBuildSkipsPDFWithoutExtractor(t *testing.T) {
	dir := t.TempDir()
	media := &stubMedia{docs: []domain.LibraryDoc{
		{ID: 1, Path: writeDoc(t, dir, "a.txt", "текстовый документ"), Ext: "txt"},
		{ID: 2, Path: filepath.Join(dir, "doc.pdf"), Ext: "pdf"},
	}}
	builder := NewBuilder(media, &stubExamples{}, unavailablePDF{}, zerolog.Nop())

	got := builder.Build(context.Background(), domain.Bot{LibraryDocIDs: []int64{1, 2}})
	if got != "текстовый документ" {
		t.Fatalf("PDF без экстрактора пропускается: %q", got)
	}
}

func TestBuildExamplesFetchAndCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><head><style>body{}</style></head><body><h1>Сайт </h1><p>Полезный   текст</p><script>ignore()</script></body></html>"))
	}))
	defer srv.Close()

	examples := &stubExamples{sites: []domain.ExampleSite{
		{ID: 1, Title: "Пример", URL: srv.URL},
	}}
	builder := NewBuilder(&stubMedia{}, examples, nil, zerolog.Nop())

	got := builder.Build(context.Background(), domain.Bot{ExampleCategoryIDs: []int64{3}})
	if !strings.Contains(got, "Examples from selected external sites:") {
		t.Fatalf("ожидали метку примеров: %q", got)
	}
	if !strings.Contains(got, "Сайт Полезный текст") {
		t.Fatalf("ожидали выжимку без разметки и лишних пробелов: %q", got)
	}
	if strings.Contains(got, "ignore()") {
		t.Fatalf("скрипты должны вырезаться: %q", got)
	}
	if examples.saved[1] == "" {
		t.Fatalf("выжимка должна кэшироваться")
	}
}

func TestBuildExamplesUsesFreshCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte("<p>свежий текст</p>"))
	}))
	defer srv.Close()

	examples := &stubExamples{sites: []domain.ExampleSite{
		{ID: 1, Title: "Пример", URL: srv.URL, Summary: "кэшированная выжимка", SummaryCachedAt: time.Now().UTC().Add(-time.Hour)},
	}}
	builder := NewBuilder(&stubMedia{}, examples, nil, zerolog.Nop())

	got := builder.Build(context.Background(), domain.Bot{ExampleCategoryIDs: []int64{3}})
	if !strings.Contains(got, "кэшированная выжимка") {
		t.Fatalf("свежий кэш должен переиспользоваться: %q", got)
	}
	if calls != 0 {
		t.Fatalf("при свежем кэше сайт не запрашивается")
	}
}

func TestBuildExamplesURLFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	examples := &stubExamples{sites: []domain.ExampleSite{
		{ID: 1, Title: "Пример", URL: srv.URL},
	}}
	builder := NewBuilder(&stubMedia{}, examples, nil, zerolog.Nop())

	got := builder.Build(context.Background(), domain.Bot{ExampleCategoryIDs: []int64{3}})
	if !strings.Contains(got, "Пример — "+srv.URL+"\n"+srv.URL) {
		t.Fatalf("при недоступном сайте подставляется URL: %q", got)
	}
	if len(examples.saved) != 0 {
		t.Fatalf("неудачная выжимка не кэшируется")
	}
}

func TestBuildExamplesRedirectLoopFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.String(), http.StatusFound)
	}))
	defer srv.Close()

	examples := &stubExamples{sites: []domain.ExampleSite{
		{ID: 1, Title: "Пример", URL: srv.URL},
	}}
	builder := NewBuilder(&stubMedia{}, examples, nil, zerolog.Nop())

	got := builder.Build(context.Background(), domain.Bot{ExampleCategoryIDs: []int64{3}})
	if !strings.Contains(got, "Пример — "+srv.URL+"\n"+srv.URL) {
		t.Fatalf("при цикле перенаправлений подставляется URL: %q", got)
	}
	if len(examples.saved) != 0 {
		t.Fatalf("выжимка из перенаправлений не кэшируется")
	}
}

func TestFetchSiteSummaryClip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<p>" + strings.Repeat("д", 2000) + "</p>"))
	}))
	defer srv.Close()

	builder := NewBuilder(&stubMedia{}, &stubExamples{}, nil, zerolog.Nop())
	got := builder.fetchSiteSummary(context.Background(), srv.URL)
	runes := []rune(got)
	if len(runes) != 801 {
		t.Fatalf("ожидали 800 символов и многоточие, получили %d", len(runes))
	}
	if runes[len(runes)-1] != '…' {
		t.Fatalf("выжимка должна заканчиваться многоточием")
	}
}

func TestBuildEmptyBot(t *testing.T) {
	builder := NewBuilder(&stubMedia{}, &stubExamples{}, nil, zerolog.Nop())
	if got := builder.Build(context.Background(), domain.Bot{}); got != "" {
		t.Fatalf("бот без источников даёт пустой контекст: %q", got)
	}
}
