// Package exporter serializes filtered campaign datasets for download.
//
// CSVWriter writes UTF-8 delimited text with a header row, optionally
// prefixed with a byte order mark so spreadsheet tools detect the encoding.
//
// ExcelWriter writes the same rows and columns to a single-sheet workbook,
// keeping numbers and dates as native cell types, and produces the upload
// template.
//
// Both exports carry every dataset column plus the derived SourceFile and
// ROAS columns. Undefined ratios are written as "N/A".
//
// Example usage:
//
//	csvWriter := exporter.NewCSVWriter(logger, true)
//	err := csvWriter.WriteDataset(ctx, w, view)
//
//	excelWriter := exporter.NewExcelWriter(logger)
//	err = excelWriter.WriteTemplate(w)
package exporter
