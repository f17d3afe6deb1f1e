package convert

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"
)

var boms = [][]byte{
	{0xEF, 0xBB, 0xBF},
	{0xFF, 0xFE},
	{0xFE, 0xFF},
}

func hasBOM(data []byte) bool {
	for _, bom := range boms {
		if bytes.HasPrefix(data, bom) {
			return true
		}
	}
	return false
}

// decodeText returns data as UTF-8. A byte order mark selects UTF-8 or
// UTF-16; invalid UTF-8 without one is read as Windows-1252.
func decodeText(data []byte) (string, error) {
	if hasBOM(data) || utf8.Valid(data) {
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func convertText(data []byte, _ string) (string, error) {
	text, err := decodeText(data)
	if err != nil {
		return "", err
	}
	if strings.ContainsRune(text, 0) {
		return "", ErrUnsupportedFormat
	}
	return strings.ReplaceAll(text, "\r\n", "\n"), nil
}

func convertDelimited(comma rune) converter {
	return func(data []byte, _ string) (string, error) {
		text, err := decodeText(data)
		if err != nil {
			return "", err
		}
		r := csv.NewReader(strings.NewReader(text))
		r.Comma = comma
		r.FieldsPerRecord = -1
		r.LazyQuotes = true

		var rows [][]string
		for {
			rec, err := r.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", fmt.Errorf("parse row %d: %w", len(rows)+1, err)
			}
			rows = append(rows, rec)
		}
		if len(rows) == 0 {
			return "", nil
		}
		return markdownTable(rows[0], rows[1:]), nil
	}
}

// markdownTable renders a pipe table. Rows are padded or cut to the header width.
func markdownTable(header []string, rows [][]string) string {
	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := range header {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(" ")
			b.WriteString(tableCell(cell))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(header)
	b.WriteString("|")
	for range header {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}

func tableCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

func fenced(lang, body string) string {
	return "```" + lang + "\n" + strings.TrimRight(body, "\n") + "\n```\n"
}

func convertJSON(data []byte, _ string) (string, error) {
	text, err := decodeText(data)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(text), "", "  "); err != nil {
		return "", fmt.Errorf("invalid json: %w", err)
	}
	return fenced("json", out.String()), nil
}

func convertYAML(data []byte, _ string) (string, error) {
	text, err := decodeText(data)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		return "", fmt.Errorf("invalid yaml: %w", err)
	}
	return fenced("yaml", text), nil
}
