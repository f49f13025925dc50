package dedup

import (
	"math"
	"testing"
)

func TestSimilarityPercentIdentical(t *testing.T) {
	if got := SimilarityPercent("Как выбрать велосипед", "Как выбрать велосипед"); got != 100 {
		t.Fatalf("ожидали 100, получили %f", got)
	}
}

func TestSimilarityPercentEmpty(t *testing.T) {
	if got := SimilarityPercent("", ""); got != 100 {
		t.Fatalf("две пустые строки считаются одинаковыми, получили %f", got)
	}
	if got := SimilarityPercent("текст", ""); got != 0 {
		t.Fatalf("пустая против непустой даёт 0, получили %f", got)
	}
}

func TestSimilarityPercentKnownValue(t *testing.T) {
	// similar_text("World","Word") в PHP: 4 общих символа,
	// 2*4*100/(5+4) ≈ 88.89.
	got := SimilarityPercent("World", "Word")
	if math.Abs(got-800.0/9.0) > 1e-9 {
		t.Fatalf("ожидали %f, получили %f", 800.0/9.0, got)
	}
}

func TestSimilarityPercentNearDuplicate(t *testing.T) {
	a := "как выбрать зимнюю резину для города"
	b := "как выбрать зимнюю резину для городов"
	if got := SimilarityPercent(a, b); got < 85 {
		t.Fatalf("почти одинаковые заголовки должны превышать порог, получили %f", got)
	}
	c := "рецепт борща на зиму"
	if got := SimilarityPercent(a, c); got >= 85 {
		t.Fatalf("разные заголовки не должны превышать порог, получили %f", got)
	}
}

func TestSimilarityPercentSymmetric(t *testing.T) {
	// Рекурсия similar_text в PHP зависит от порядка аргументов:
	// пара ниже даёт 27.27 против 18.18. Канонизация порядка
	// делает результат симметричным.
	pairs := [][2]string{
		{"PHP IS GREAT", "WITH MYSQL"},
		{"как выбрать зимнюю резину", "зимняя резина: как выбрать"},
		{"World", "Word"},
	}
	for _, pair := range pairs {
		ab := SimilarityPercent(pair[0], pair[1])
		ba := SimilarityPercent(pair[1], pair[0])
		if math.Abs(ab-ba) > 1e-9 {
			t.Fatalf("схожесть должна быть симметричной: %q/%q дали %f и %f", pair[0], pair[1], ab, ba)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float64{1, 0}, []float64{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("совпадающие векторы дают 1, получили %f", got)
	}
	if got := CosineSimilarity([]float64{1, 0}, []float64{0, 1}); math.Abs(got) > 1e-9 {
		t.Fatalf("ортогональные векторы дают 0, получили %f", got)
	}
	if got := CosineSimilarity([]float64{0, 0}, []float64{1, 1}); got != 0 {
		t.Fatalf("нулевой вектор даёт 0, получили %f", got)
	}
	if got := CosineSimilarity(nil, []float64{1}); got != 0 {
		t.Fatalf("пустой вектор даёт 0, получили %f", got)
	}
}
