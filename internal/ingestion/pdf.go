package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
)

var ErrNoText = errors.New("no text found in PDF")

// PDFReader validates an uploaded file and pulls its text layer.
type PDFReader interface {
	Validate(data []byte) (pages int, err error)
	Text(data []byte) (string, error)
}

type FitzReader struct {
	logger *zap.Logger
}

func NewFitzReader(logger *zap.Logger) *FitzReader {
	return &FitzReader{logger: logger}
}

// Validate checks the PDF structure with pdfcpu in relaxed mode and returns the page count.
func (r *FitzReader) Validate(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return 0, fmt.Errorf("not a readable PDF: %w", err)
	}

	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	if pages == 0 {
		return 0, errors.New("PDF has no pages")
	}
	return pages, nil
}

func (r *FitzReader) Text(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var textBuilder strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			r.logger.Warn("Failed to extract text from page", zap.Int("page", i+1), zap.Error(err))
			continue
		}
		if pageText != "" {
			textBuilder.WriteString(pageText)
			textBuilder.WriteString("\n")
		}
	}

	text := strings.TrimSpace(sanitizeUTF8(textBuilder.String()))
	if text == "" {
		return "", ErrNoText
	}

	r.logger.Debug("PDF text extracted",
		zap.Int("pages", doc.NumPage()),
		zap.Int("text_length", len(text)),
	)
	return text, nil
}

// sanitizeUTF8 drops invalid byte sequences; PostgreSQL rejects them in text and jsonb.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var result strings.Builder
	result.Grow(len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			s = s[1:]
			continue
		}
		result.WriteRune(r)
		s = s[size:]
	}
	return result.String()
}
