package repo

import (
	"strings"
	"testing"
)

func TestRecentTitlesQueryPublishedOnly(t *testing.T) {
	if !strings.Contains(recentTitlesQuery, "status = 'publish'") {
		t.Fatal("выборка недавних заголовков должна ограничиваться опубликованными постами")
	}
}

func TestVectorConversionRoundTrip(t *testing.T) {
	src := []float64{0.5, -1.25, 3}
	got := toFloat64(toFloat32(src))
	if len(got) != len(src) {
		t.Fatalf("ожидали %d элементов, получили %d", len(src), len(got))
	}
	for i := range src {
		if got[i] != src[i] {
			t.Fatalf("элемент %d: ожидали %f, получили %f", i, src[i], got[i])
		}
	}
	if toFloat64(nil) != nil {
		t.Fatal("nil вектор остаётся nil")
	}
}
