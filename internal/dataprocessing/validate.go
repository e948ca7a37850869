package dataprocessing

import (
	"github.com/shopspring/decimal"

	"campaignpulse/pkg/contracts/domain"
)

// Validate checks the merged table against schema and coerces it into a typed
// dataset. A non-empty required − present difference returns a
// *MissingColumnsError and no dataset. Cell-level coercion failures are never
// fatal and are counted in the dataset's CoercionReport.
func Validate(table *domain.Table, schema domain.Schema) (*domain.CampaignDataset, error) {
	if table == nil || len(table.Columns) == 0 {
		return nil, ErrNoValidData
	}

	if missing := MissingColumns(schema, table.Columns); len(missing) > 0 {
		return nil, &MissingColumnsError{Schema: schema.Name, Missing: missing}
	}

	desc := describe(schema, table)
	ds := &domain.CampaignDataset{
		Columns: append([]string(nil), table.Columns...),
		Records: make([]domain.CampaignRecord, 0, len(table.Rows)),
		Schema:  desc,
	}

	for i, row := range table.Rows {
		ds.Records = append(ds.Records, coerceRow(i, row, desc, &ds.Coercion))
	}

	return ds, nil
}

func describe(schema domain.Schema, table *domain.Table) domain.SchemaDescriptor {
	desc := domain.SchemaDescriptor{
		Name:    schema.Name,
		Columns: make(map[domain.Field]string, len(schema.Columns)),
		Present: make(map[domain.Field]bool, len(schema.Columns)),
	}
	for field, col := range schema.Columns {
		desc.Columns[field] = col
		desc.Present[field] = col != "" && table.HasColumn(col)
	}
	return desc
}

func coerceRow(idx int, row domain.Row, desc domain.SchemaDescriptor, report *domain.CoercionReport) domain.CampaignRecord {
	cell := func(f domain.Field) string {
		if !desc.Has(f) {
			return ""
		}
		return row.Cells[desc.Column(f)]
	}

	rec := domain.CampaignRecord{
		Row:            idx,
		Influencer:     cell(domain.FieldInfluencer),
		Brand:          cell(domain.FieldBrand),
		Platform:       cell(domain.FieldPlatform),
		Product:        cell(domain.FieldProduct),
		InfluencerType: cell(domain.FieldInfluencerType),
		SourceFile:     row.SourceFile,
		Cells:          row.Cells,
	}

	if desc.Has(domain.FieldDate) {
		if t, ok := parseDate(cell(domain.FieldDate), row.FromWorkbook); ok {
			rec.Date = &t
		} else {
			report.UnknownDates++
		}
	}

	amount := func(f domain.Field) decimal.Decimal {
		d, ok := ParseAmount(cell(f))
		if !ok {
			report.InvalidNumbers++
		} else if d.IsNegative() {
			report.NegativeAmounts++
		}
		return d
	}
	rec.Spend = amount(domain.FieldSpend)
	rec.Revenue = amount(domain.FieldRevenue)

	count := func(f domain.Field) domain.OptionalInt {
		if !desc.Has(f) {
			return domain.OptionalInt{}
		}
		v, ok := parseCount(cell(f))
		if !ok {
			report.InvalidNumbers++
		}
		return v
	}
	rec.Reach = count(domain.FieldReach)
	rec.Engagement = count(domain.FieldEngagement)
	rec.Orders = count(domain.FieldOrders)
	rec.PostCount = count(domain.FieldPostCount)

	if desc.Has(domain.FieldROI) {
		roi, ok := parseRatio(cell(domain.FieldROI))
		if !ok {
			report.InvalidNumbers++
		}
		rec.ROI = roi
	} else {
		rec.ROI = domain.Divide(rec.Revenue, rec.Spend)
	}
	if !rec.ROI.Available() {
		report.UnavailableROI++
	}

	return rec
}
