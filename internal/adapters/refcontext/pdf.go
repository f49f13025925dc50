package refcontext

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// LedongthucExtractor реализует PDFExtractor через github.com/ledongthuc/pdf.
type LedongthucExtractor struct{}

// NewPDFExtractor создаёт экстрактор текста из PDF.
func NewPDFExtractor() *LedongthucExtractor {
	return &LedongthucExtractor{}
}

var _ PDFExtractor = (*LedongthucExtractor)(nil)

// IsAvailable сообщает о доступности извлечения.
func (e *LedongthucExtractor) IsAvailable() bool {
	return true
}

// Extract возвращает сплошной текст всех страниц документа.
func (e *LedongthucExtractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("чтение PDF: %w", err)
	}
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("открытие PDF: %w", err)
	}
	var buf bytes.Buffer
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("извлечение страницы %d: %w", i, err)
		}
		buf.WriteString(text)
		if i < numPages {
			buf.WriteByte('\n')
		}
	}
	return buf.String(), nil
}
