package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"campaignpulse/pkg/contracts/domain"
)

// ParseFile reads one uploaded spreadsheet into a table, using the first row
// as column headers and tagging every row with the file name.
func ParseFile(file domain.UploadedFile) (*domain.Table, error) {
	var (
		rows     [][]string
		err      error
		workbook bool
	)

	switch strings.ToLower(filepath.Ext(file.Name)) {
	case ".xlsx", ".xlsm":
		rows, err = readWorkbookRows(file.Data)
		workbook = true
	case ".csv":
		rows, err = readCSVRows(file.Data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(file.Name))
	}
	if err != nil {
		return nil, err
	}

	return buildTable(file.Name, rows, workbook)
}

// readWorkbookRows returns the raw cell values of the first sheet.
// Raw values keep dates as serial numbers so coercion can read them exactly.
func readWorkbookRows(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSVRows(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// buildTable turns raw rows into a table keyed by normalised headers.
func buildTable(sourceFile string, rows [][]string, workbook bool) (*domain.Table, error) {
	headerIdx := -1
	for i, row := range rows {
		if !isBlankRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return nil, ErrEmptyFile
	}

	columns := normaliseHeaders(rows[headerIdx])
	table := &domain.Table{Columns: columns}

	for _, row := range rows[headerIdx+1:] {
		if isBlankRow(row) {
			continue
		}
		cells := make(map[string]string, len(columns))
		for j, col := range columns {
			if j < len(row) {
				cells[col] = strings.TrimSpace(row[j])
			} else {
				cells[col] = ""
			}
		}
		table.Rows = append(table.Rows, domain.Row{Cells: cells, SourceFile: sourceFile, FromWorkbook: workbook})
	}

	return table, nil
}

// normaliseHeaders trims header cells, names blank ones "Unnamed: i" and
// suffixes repeats with ".1", ".2" so every column key is unique.
func normaliseHeaders(header []string) []string {
	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))

	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		base := name
		for seen[name] > 0 {
			name = base + "." + strconv.Itoa(seen[base])
			seen[base]++
		}
		seen[name]++
		columns[i] = name
	}
	return columns
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
