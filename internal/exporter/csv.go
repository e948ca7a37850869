package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"campaignpulse/internal/dataprocessing"
	"campaignpulse/pkg/contracts/domain"
)

// CSVContentType is the media type of CSV exports.
const CSVContentType = "text/csv; charset=utf-8"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	logger    *slog.Logger
	bomPrefix bool
}

// NewCSVWriter creates a new CSV writer. bomPrefix controls whether exports
// start with a UTF-8 byte order mark.
func NewCSVWriter(logger *slog.Logger, bomPrefix bool) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{
		logger:    logger.With(slog.String("component", "csv_exporter")),
		bomPrefix: bomPrefix,
	}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// Write writes the header row and records to w.
func (c *CSVWriter) Write(w io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteDataset writes ds as UTF-8 CSV with a header row, including the
// derived SourceFile and ROAS columns.
func (c *CSVWriter) WriteDataset(ctx context.Context, w io.Writer, ds *domain.CampaignDataset) error {
	view := dataprocessing.Tabulate(ds)

	c.logger.InfoContext(ctx, "Writing CSV export",
		slog.Int("record_count", len(view.Rows)),
		slog.Int("column_count", len(view.Columns)))

	return c.Write(w, WriteOptions{
		Headers:   view.Columns,
		Records:   view.Rows,
		BOMPrefix: c.bomPrefix,
	})
}

func writeFile(filePath string, write func(io.Writer) error) error {
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
