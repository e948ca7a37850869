package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"campaignpulse/internal/dataprocessing"
	"campaignpulse/pkg/contracts/domain"
)

var header = []string{"Date", "Influencer", "Brand", "Platform", "Spend", "Revenue", "ROI", "Notes"}

func testDataset(t *testing.T) *domain.CampaignDataset {
	t.Helper()

	rows := [][]string{
		{"2024-01-10", "Amit", "BrandX", "Instagram", "5000", "20000", "4.0", "launch, week 1"},
		{"later", "Riya", "BrandY", "YouTube", "0", "0", "", "ईद"},
	}
	tbl := &domain.Table{Columns: header}
	for _, r := range rows {
		cells := map[string]string{}
		for i, h := range header {
			cells[h] = r[i]
		}
		tbl.Rows = append(tbl.Rows, domain.Row{Cells: cells, SourceFile: "jan.xlsx"})
	}

	ds, err := dataprocessing.Validate(tbl, dataprocessing.BasicSchema())
	require.NoError(t, err)
	return ds
}

func TestCSVWriter_WriteDataset(t *testing.T) {
	tests := []struct {
		name string
		bom  bool
	}{
		{name: "without BOM", bom: false},
		{name: "with BOM", bom: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewCSVWriter(nil, tt.bom)

			require.NoError(t, w.WriteDataset(context.Background(), &buf, testDataset(t)))

			data := buf.Bytes()
			assert.Equal(t, tt.bom, bytes.HasPrefix(data, utf8BOM))

			records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))).ReadAll()
			require.NoError(t, err)
			require.Len(t, records, 3)

			assert.Equal(t, append(append([]string{}, header...), "SourceFile", "ROAS"), records[0])
			assert.Equal(t, []string{"2024-01-10", "Amit", "BrandX", "Instagram", "5000", "20000", "4.0", "launch, week 1", "jan.xlsx", "4.00"}, records[1])
			assert.Equal(t, "later", records[2][0], "unknown dates keep their text")
			assert.Equal(t, "ईद", records[2][7])
			assert.Equal(t, "N/A", records[2][9])
		})
	}
}

func TestCSVWriter_EmptyView(t *testing.T) {
	ds := testDataset(t)
	empty := ds.WithRecords(nil)

	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter(nil, false).WriteDataset(context.Background(), &buf, empty))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1, "header row only")
}

func TestExcelWriter_WriteDataset(t *testing.T) {
	var buf bytes.Buffer
	w := NewExcelWriter(nil)

	require.NoError(t, w.WriteDataset(context.Background(), &buf, testDataset(t)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{DatasetSheet}, f.GetSheetList())

	rows, err := f.GetRows(DatasetSheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, append(append([]string{}, header...), "SourceFile", "ROAS"), rows[0])

	assert.Equal(t, "Amit", rows[1][1])
	assert.Equal(t, "5000", rows[1][4])
	assert.Equal(t, "20000", rows[1][5])
	assert.Equal(t, "4", rows[1][9])
	assert.Equal(t, "45301", rows[1][0], "known dates are stored as date serials")

	assert.Equal(t, "later", rows[2][0])
	assert.Equal(t, "N/A", rows[2][6], "blank ROI is unavailable")
	assert.Equal(t, "N/A", rows[2][9])

	formatted, err := f.GetCellValue(DatasetSheet, "A2")
	require.NoError(t, err)
	assert.NotEqual(t, "45301", formatted, "date cells carry a date format")
}

func TestExport_UnparsedAmountsKeepTheirText(t *testing.T) {
	tbl := &domain.Table{Columns: header, Rows: []domain.Row{
		{SourceFile: "a.csv", Cells: map[string]string{
			"Date": "2024-01-10", "Influencer": "Amit", "Brand": "B", "Platform": "IG",
			"Spend": "n/a", "Revenue": "₹20,000", "ROI": "4", "Notes": "x",
		}},
		{SourceFile: "a.csv", Cells: map[string]string{
			"Date": "2024-01-11", "Influencer": "Riya", "Brand": "B", "Platform": "IG",
			"Spend": "", "Revenue": "150", "ROI": "", "Notes": "y",
		}},
	}}
	ds, err := dataprocessing.Validate(tbl, dataprocessing.BasicSchema())
	require.NoError(t, err)

	var csvBuf bytes.Buffer
	require.NoError(t, NewCSVWriter(nil, false).WriteDataset(context.Background(), &csvBuf, ds))
	csvRows, err := csv.NewReader(&csvBuf).ReadAll()
	require.NoError(t, err)

	var xlsxBuf bytes.Buffer
	require.NoError(t, NewExcelWriter(nil).WriteDataset(context.Background(), &xlsxBuf, ds))
	f, err := excelize.OpenReader(&xlsxBuf)
	require.NoError(t, err)
	defer f.Close()
	xlsxRows, err := f.GetRows(DatasetSheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)

	require.Len(t, csvRows, 3)
	require.Len(t, xlsxRows, 3)
	assert.Equal(t, csvRows[0], xlsxRows[0])

	const spend, revenue = 4, 5
	assert.Equal(t, "n/a", csvRows[1][spend])
	assert.Equal(t, "n/a", xlsxRows[1][spend], "an unparsed amount is not written as zero")
	assert.Equal(t, "₹20,000", csvRows[1][revenue])
	assert.Equal(t, "20000", xlsxRows[1][revenue])

	assert.Equal(t, "", csvRows[2][spend])
	assert.Equal(t, "", xlsxRows[2][spend], "a blank amount stays blank")
	assert.Equal(t, "150", xlsxRows[2][revenue])
}

func TestExcelWriter_TemplateRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewExcelWriter(nil).WriteTemplate(&buf))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	rows, err := f.GetRows(TemplateSheet)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Len(t, rows, 2, "header and exactly one example row")
	assert.Equal(t, TemplateColumns, rows[0])

	tbl, err := dataprocessing.ParseFile(domain.UploadedFile{Name: "template.xlsx", Data: buf.Bytes()})
	require.NoError(t, err)

	ds, err := dataprocessing.Validate(tbl, dataprocessing.BasicSchema())
	require.NoError(t, err, "the template satisfies the basic schema")
	require.Equal(t, 1, ds.Len())

	rec := ds.Records[0]
	require.NotNil(t, rec.Date)
	assert.Equal(t, "2024-01-15", rec.Date.Format(domain.DateLayout))
	assert.Equal(t, "Amit", rec.Influencer)
	assert.Equal(t, domain.IntOf(120), rec.Orders)
	roi, ok := rec.ROI.Value()
	require.True(t, ok)
	assert.Equal(t, 4.0, roi)
}

func TestExcelWriter_WriteTemplateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.xlsx")
	require.NoError(t, NewExcelWriter(nil).WriteTemplateFile(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{TemplateSheet}, f.GetSheetList())
}
