package convert

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

func convertPDF(data []byte, _ string) (text string, err error) {
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	out, err := io.ReadAll(io.LimitReader(plain, maxPartSize))
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	return string(out), nil
}
