// Package convert turns drive file content into markdown text suitable for a
// language model prompt.
package convert

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/LeonardHd/maf-onedrive-integration/internal/models"
)

var (
	// ErrUnsupportedFormat is returned when no converter handles the file.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrNoText is returned when a converter ran but produced no text.
	ErrNoText = errors.New("no text extracted")
)

// Document is the normalized form of a file.
type Document struct {
	Text     string // markdown
	Format   string // converter that produced Text
	Language string // detected language name, "" when unsure
}

type converter func(data []byte, filename string) (string, error)

var byExtension = map[string]struct {
	format string
	fn     converter
}{
	".txt":      {"text", convertText},
	".md":       {"text", convertText},
	".markdown": {"text", convertText},
	".log":      {"text", convertText},
	".rst":      {"text", convertText},
	".csv":      {"csv", convertDelimited(',')},
	".tsv":      {"tsv", convertDelimited('\t')},
	".json":     {"json", convertJSON},
	".yaml":     {"yaml", convertYAML},
	".yml":      {"yaml", convertYAML},
	".html":     {"html", convertHTML},
	".htm":      {"html", convertHTML},
	".docx":     {"docx", convertDOCX},
	".pptx":     {"pptx", convertPPTX},
	".xlsx":     {"xlsx", convertXLSX},
	".pdf":      {"pdf", convertPDF},
}

// Convert normalizes data to markdown, choosing a converter by the extension
// of filename and falling back to content sniffing.
func Convert(data []byte, filename string) (Document, error) {
	format, fn := pick(data, filename)
	if fn == nil {
		return Document{}, fmt.Errorf("%s: %w", filename, ErrUnsupportedFormat)
	}

	text, err := fn(data, filename)
	if err != nil {
		return Document{}, fmt.Errorf("%s as %s: %w", filename, format, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Document{}, fmt.Errorf("%s: %w", filename, ErrNoText)
	}

	return Document{
		Text:     text,
		Format:   format,
		Language: DetectLanguage(text),
	}, nil
}

func pick(data []byte, filename string) (string, converter) {
	ext := strings.ToLower(models.Extension(filename))
	if c, ok := byExtension[ext]; ok {
		return c.format, c.fn
	}

	sniffed := http.DetectContentType(data)
	switch {
	case strings.HasPrefix(sniffed, "text/html"):
		return "html", convertHTML
	case strings.HasPrefix(sniffed, "text/plain"):
		return "text", convertText
	case sniffed == "application/pdf":
		return "pdf", convertPDF
	case sniffed == "application/zip":
		if format, fn := sniffOOXML(data); fn != nil {
			return format, fn
		}
	}
	return "", nil
}
