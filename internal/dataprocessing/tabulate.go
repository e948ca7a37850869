package dataprocessing

import (
	"campaignpulse/pkg/contracts/domain"
)

// ExportColumns returns the dataset columns followed by the derived
// SourceFile and ROAS columns.
func ExportColumns(ds *domain.CampaignDataset) []string {
	cols := make([]string, 0, len(ds.Columns)+2)
	hasSource, hasROAS := false, false
	for _, c := range ds.Columns {
		switch c {
		case domain.SourceFileColumn:
			hasSource = true
		case domain.ROASColumn:
			hasROAS = true
		}
		cols = append(cols, c)
	}
	if !hasSource {
		cols = append(cols, domain.SourceFileColumn)
	}
	if !hasROAS {
		cols = append(cols, domain.ROASColumn)
	}
	return cols
}

// CellText renders one column of rec. Known dates use DateLayout; unknown
// dates keep the uploaded text. Every other column is passed through.
func CellText(ds *domain.CampaignDataset, rec domain.CampaignRecord, column string) string {
	switch {
	case column == domain.SourceFileColumn:
		return rec.SourceFile
	case column == domain.ROASColumn:
		return rec.ROAS().String()
	case ds.Schema.Has(domain.FieldDate) && column == ds.Schema.Column(domain.FieldDate) && rec.Date != nil:
		return rec.Date.Format(domain.DateLayout)
	}
	return rec.Cells[column]
}

// Tabulate renders ds as strings in export column order.
func Tabulate(ds *domain.CampaignDataset) domain.TableView {
	cols := ExportColumns(ds)
	rows := make([][]string, len(ds.Records))
	for i, rec := range ds.Records {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = CellText(ds, rec, c)
		}
		rows[i] = row
	}
	return domain.TableView{Columns: cols, Rows: rows}
}
