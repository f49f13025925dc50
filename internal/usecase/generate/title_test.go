package generate

import (
	"strings"
	"testing"
)

func TestNormalizeTitleTakesFirstLine(t *testing.T) {
	got := NormalizeTitle("Первый заголовок\nВторая строка")
	if got != "Первый заголовок" {
		t.Fatalf("ожидали только первую строку, получили %q", got)
	}
}

func TestNormalizeTitleStripsPrefixes(t *testing.T) {
	cases := map[string]string{
		"# Маркдаун-заголовок":   "Маркдаун-заголовок",
		"- Пункт списка":         "Пункт списка",
		"Title: Настоящий текст": "Настоящий текст",
		"H1: Настоящий текст":    "Настоящий текст",
		"«Кавычки по краям»":     "Кавычки по краям",
		`"Двойные кавычки"`:      "Двойные кавычки",
	}
	for raw, want := range cases {
		if got := NormalizeTitle(raw); got != want {
			t.Fatalf("NormalizeTitle(%q) = %q, ожидали %q", raw, got, want)
		}
	}
}

func TestNormalizeTitleStripsMarkupAndWhitespace(t *testing.T) {
	got := NormalizeTitle("<b>Жирный</b>   заголовок\tс   пробелами")
	if got != "Жирный заголовок с пробелами" {
		t.Fatalf("неожиданный результат: %q", got)
	}
}

func TestNormalizeTitleTruncates(t *testing.T) {
	long := strings.Repeat("слово ", 30)
	got := NormalizeTitle(long)
	if len([]rune(got)) > 60 {
		t.Fatalf("заголовок длиннее 60 символов: %d", len([]rune(got)))
	}
	if strings.HasSuffix(got, " ") || strings.HasSuffix(got, ",") {
		t.Fatalf("хвостовые разделители должны сниматься: %q", got)
	}
}

func TestNormalizeTitleIdempotent(t *testing.T) {
	raw := `# "Очень длинный заголовок про выбор зимней резины для города"`
	once := NormalizeTitle(raw)
	twice := NormalizeTitle(once)
	if once != twice {
		t.Fatalf("нормализация не идемпотентна: %q != %q", once, twice)
	}
}

func TestNormalizeTitleEmpty(t *testing.T) {
	if got := NormalizeTitle("  \n  "); got != "" {
		t.Fatalf("ожидали пустую строку, получили %q", got)
	}
}

func TestFallbackDescription(t *testing.T) {
	content := "<p>" + strings.Repeat("Длинное слово ", 40) + "</p>"
	desc := fallbackDescription(content)
	if strings.Contains(desc, "<p>") {
		t.Fatalf("разметка должна сниматься: %q", desc)
	}
	if len([]rune(desc)) > 160 {
		t.Fatalf("описание длиннее 160 символов: %d", len([]rune(desc)))
	}
}

func TestCanonicalURL(t *testing.T) {
	got := canonicalURL("https://demo.example/", "Как выбрать велосипед")
	if got != "https://demo.example/как-выбрать-велосипед" {
		t.Fatalf("неожиданный канонический адрес: %q", got)
	}
	if canonicalURL("", "Заголовок") != "" {
		t.Fatalf("без базового URL канонический пуст")
	}
}
