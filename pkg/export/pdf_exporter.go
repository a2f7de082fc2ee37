package export

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const pdfFamily = "body"

// PDFExporter renders datasets into a basic tabular PDF.
type PDFExporter struct {
	fontPath string
}

// NewPDFExporter constructs a PDF exporter using the bundled Go fonts, which
// cover Latin, Greek and Cyrillic text.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// NewPDFExporterWithFont constructs a PDF exporter that sets all text in the
// TrueType font at path. Use a CJK font such as Noto Sans SC for Han names.
func NewPDFExporterWithFont(path string) *PDFExporter {
	return &PDFExporter{fontPath: path}
}

// Render creates a landscape PDF with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	if err := e.registerFonts(pdf); err != nil {
		return nil, err
	}
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont(pdfFamily, "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont(pdfFamily, "B", 10)
	colWidth := 277.0 / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(pdfFamily, "", 9)
	for _, row := range data.Rows {
		for i := range data.Headers {
			pdf.CellFormat(colWidth, 7, data.cell(row, i), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) registerFonts(pdf *gofpdf.Fpdf) error {
	regular, bold := goregular.TTF, gobold.TTF
	if e.fontPath != "" {
		font, err := os.ReadFile(e.fontPath)
		if err != nil {
			return fmt.Errorf("read pdf font: %w", err)
		}
		regular, bold = font, font
	}
	pdf.AddUTF8FontFromBytes(pdfFamily, "", regular)
	pdf.AddUTF8FontFromBytes(pdfFamily, "B", bold)
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("load pdf font: %w", err)
	}
	return nil
}
