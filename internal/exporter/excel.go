package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"campaignpulse/internal/dataprocessing"
	"campaignpulse/pkg/contracts/domain"
)

// XLSXContentType is the media type of xlsx workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DatasetSheet is the sheet name of a filtered-data workbook.
const DatasetSheet = "Campaigns"

// TemplateSheet is the sheet name of the upload template.
const TemplateSheet = "Template"

// TemplateColumns are the headers of the downloadable upload template.
var TemplateColumns = []string{"Date", "Influencer", "Brand", "Platform", "Reach", "Orders", "Revenue", "Spend", "ROI"}

// ExcelWriter writes datasets and templates as xlsx workbooks.
type ExcelWriter struct {
	logger *slog.Logger
}

// NewExcelWriter creates a new workbook writer.
func NewExcelWriter(logger *slog.Logger) *ExcelWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelWriter{logger: logger.With(slog.String("component", "excel_exporter"))}
}

// WriteDataset writes ds to w as a workbook with one sheet holding the same
// rows and columns as the CSV export.
func (e *ExcelWriter) WriteDataset(ctx context.Context, w io.Writer, ds *domain.CampaignDataset) error {
	columns := dataprocessing.ExportColumns(ds)

	e.logger.InfoContext(ctx, "Writing Excel export",
		slog.Int("record_count", ds.Len()),
		slog.Int("column_count", len(columns)))

	rows := make([][]interface{}, 0, ds.Len())
	for _, rec := range ds.Records {
		row := make([]interface{}, len(columns))
		for j, col := range columns {
			row[j] = cellValue(ds, rec, col)
		}
		rows = append(rows, row)
	}

	return writeWorkbook(w, DatasetSheet, columns, rows)
}

// WriteTemplate writes the upload template: TemplateColumns and exactly one
// example row.
func (e *ExcelWriter) WriteTemplate(w io.Writer) error {
	example := []interface{}{
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		"Amit", "BrandX", "Instagram",
		50000, 120, 20000, 5000, 4.0,
	}
	return writeWorkbook(w, TemplateSheet, TemplateColumns, [][]interface{}{example})
}

// WriteTemplateFile writes the upload template to filePath.
func (e *ExcelWriter) WriteTemplateFile(filePath string) error {
	return writeFile(filePath, e.WriteTemplate)
}

func writeWorkbook(w io.Writer, sheet string, headers []string, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	if len(headers) > 0 {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("failed to create header style: %w", err)
		}
		last, err := excelize.CoordinatesToCellName(len(headers), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return fmt.Errorf("failed to style headers: %w", err)
		}
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
