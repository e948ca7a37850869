package exporter

import (
	"strings"

	"github.com/shopspring/decimal"

	"campaignpulse/internal/dataprocessing"
	"campaignpulse/pkg/contracts/domain"
)

// notAvailable is written in place of an undefined ratio.
const notAvailable = "N/A"

// cellValue returns the typed spreadsheet value for one column of rec.
// Canonical numeric columns become numbers and known dates become times so
// the workbook keeps native cell types. Anything else is written as text.
func cellValue(ds *domain.CampaignDataset, rec domain.CampaignRecord, column string) interface{} {
	if column == domain.ROASColumn {
		return ratioValue(rec.ROAS())
	}

	switch fieldOf(ds.Schema, column) {
	case domain.FieldDate:
		if rec.Date != nil {
			return *rec.Date
		}
	case domain.FieldSpend:
		return amountValue(rec.Spend, rec.Cells[column])
	case domain.FieldRevenue:
		return amountValue(rec.Revenue, rec.Cells[column])
	case domain.FieldROI:
		return ratioValue(rec.ROI)
	case domain.FieldReach:
		return intValue(rec.Reach, rec.Cells[column])
	case domain.FieldEngagement:
		return intValue(rec.Engagement, rec.Cells[column])
	case domain.FieldOrders:
		return intValue(rec.Orders, rec.Cells[column])
	case domain.FieldPostCount:
		return intValue(rec.PostCount, rec.Cells[column])
	}

	return dataprocessing.CellText(ds, rec, column)
}

func fieldOf(desc domain.SchemaDescriptor, column string) domain.Field {
	for _, f := range domain.AllFields {
		if desc.Has(f) && desc.Column(f) == column {
			return f
		}
	}
	return ""
}

func ratioValue(r domain.Ratio) interface{} {
	if v, ok := r.Value(); ok {
		return v
	}
	return notAvailable
}

// amountValue writes the parsed amount, or the original text when the cell
// was blank or did not parse.
func amountValue(v decimal.Decimal, raw string) interface{} {
	if strings.TrimSpace(raw) == "" {
		return raw
	}
	if _, ok := dataprocessing.ParseAmount(raw); !ok {
		return raw
	}
	return v.InexactFloat64()
}

func intValue(v domain.OptionalInt, raw string) interface{} {
	if v.Valid {
		return v.Value
	}
	return raw
}
