package convert

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// maxSheetCells bounds the table cells rendered for one workbook. A single
// cell at the last column makes a row 16384 cells wide.
const maxSheetCells = 100_000

func convertXLSX(data []byte, _ string) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{
		UnzipSizeLimit:    4 * maxPartSize,
		UnzipXMLSizeLimit: maxPartSize,
	})
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	budget := maxSheetCells
	var b strings.Builder
	for _, name := range f.GetSheetList() {
		rows, truncated, err := sheetRows(f, name, budget)
		if err != nil {
			return "", fmt.Errorf("sheet %s: %w", name, err)
		}
		if len(rows) == 0 {
			if truncated {
				b.WriteString("_Remaining sheets omitted._\n")
				break
			}
			continue
		}

		width := 0
		for _, r := range rows {
			width = max(width, len(r))
		}
		budget -= width * len(rows)
		for len(rows[0]) < width {
			rows[0] = append(rows[0], "")
		}

		fmt.Fprintf(&b, "## %s\n\n", name)
		b.WriteString(markdownTable(rows[0], rows[1:]))
		b.WriteString("\n")
		if truncated {
			b.WriteString("\n_Remaining rows omitted._\n")
			break
		}
	}
	return b.String(), nil
}

// sheetRows reads the non-blank rows of a sheet until rendering them as a
// table would need more than budget cells.
func sheetRows(f *excelize.File, sheet string, budget int) ([][]string, bool, error) {
	it, err := f.Rows(sheet)
	if err != nil {
		return nil, false, err
	}
	defer it.Close()

	var rows [][]string
	width := 0
	for it.Next() {
		row, err := it.Columns()
		if err != nil {
			return nil, false, err
		}
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		w := max(width, len(row))
		if (len(rows)+1)*w > budget {
			return rows, true, nil
		}
		width = w
		rows = append(rows, row)
	}
	return rows, false, it.Error()
}
