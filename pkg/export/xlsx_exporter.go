package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/width"
)

const (
	xlsxSheet = "Sheet1"
	// maxColWidth is the widest column excelize accepts.
	maxColWidth = 255
)

// XLSXExporter renders a dataset into a single-sheet workbook with auto-sized columns.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render returns the workbook bytes.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	widths := make([]int, len(data.Headers))
	writeRow := func(rowNum int, values []string) error {
		cells := make([]interface{}, len(data.Headers))
		for i := range data.Headers {
			v := data.cell(values, i)
			cells[i] = v
			if w := displayWidth(v); w > widths[i] {
				widths[i] = w
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		return f.SetSheetRow(xlsxSheet, cell, &cells)
	}

	if err := writeRow(1, data.Headers); err != nil {
		return nil, fmt.Errorf("write xlsx headers: %w", err)
	}
	for i, row := range data.Rows {
		if err := writeRow(i+2, row); err != nil {
			return nil, fmt.Errorf("write xlsx row %d: %w", i+1, err)
		}
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(xlsxSheet, col, col, float64(min(w+2, maxColWidth))); err != nil {
			return nil, fmt.Errorf("size xlsx column %s: %w", col, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// displayWidth counts East Asian wide runes as two columns.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}
