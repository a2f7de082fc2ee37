package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/image/font/gofont/goregular"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"student_id", "student_name", "course", "score"},
		Rows: [][]string{
			{"1", "Ada Lovelace", "Analysis", "95"},
			{"2", "Hopper, Grace", "Compilers"},
			{"3", "张三", "Analysis", "88.5"},
		},
	}
}

func TestCSVExporterGolden(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "grades_csv", out)
}

func TestXLSXExporterSizesColumns(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"student_id", "student_name", "course", "score"}, rows[0])
	assert.Equal(t, "张三", rows[3][1])

	nameWidth, err := f.GetColWidth(xlsxSheet, "B")
	require.NoError(t, err)
	assert.Equal(t, float64(len("Hopper, Grace")+2), nameWidth)
}

func TestXLSXExporterCapsWideColumns(t *testing.T) {
	long := strings.Repeat("x", 300)
	data := Dataset{
		Headers: []string{"id", "description"},
		Rows:    [][]string{{"1", long}},
	}

	out, err := NewXLSXExporter().Render(data)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	width, err := f.GetColWidth(xlsxSheet, "B")
	require.NoError(t, err)
	assert.Equal(t, float64(maxColWidth), width)

	cell, err := f.GetCellValue(xlsxSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, long, cell)
}

func TestPDFExporterProducesDocument(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "grades")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterUsesConfiguredFont(t *testing.T) {
	path := filepath.Join(t.TempDir(), "body.ttf")
	require.NoError(t, os.WriteFile(path, goregular.TTF, 0o644))

	out, err := Render(sampleDataset(), "grades.pdf", "grades", Options{PDFFont: path})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterMissingFont(t *testing.T) {
	_, err := NewPDFExporterWithFont(filepath.Join(t.TempDir(), "missing.ttf")).Render(sampleDataset(), "")
	assert.ErrorContains(t, err, "read pdf font")
}

func TestRenderRejectsUnknownExtension(t *testing.T) {
	_, err := Render(sampleDataset(), "grades.ods", "", Options{})
	assert.Error(t, err)

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestWriteFileByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grades.xlsx")
	require.NoError(t, WriteFile(path, sampleDataset(), "", Options{}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	assert.Equal(t, []string{xlsxSheet}, f.GetSheetList())
}

func TestDisplayWidth(t *testing.T) {
	assert.Equal(t, 4, displayWidth("张三"))
	assert.Equal(t, 3, displayWidth("abc"))
}
