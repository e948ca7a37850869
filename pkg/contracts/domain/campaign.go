package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceFileColumn is the derived column that names the upload a row came from.
const SourceFileColumn = "SourceFile"

// ROASColumn is the derived column holding revenue/spend per row.
const ROASColumn = "ROAS"

// DateLayout is the calendar date format used for output.
const DateLayout = "2006-01-02"

// UploadedFile is one spreadsheet blob supplied by the user, fully in memory.
type UploadedFile struct {
	Name string `json:"name" validate:"required"`
	Data []byte `json:"-"`
}

// Row is one untyped spreadsheet row keyed by its (normalised) header.
type Row struct {
	Cells        map[string]string `json:"cells"`
	SourceFile   string            `json:"source_file"`
	FromWorkbook bool              `json:"from_workbook,omitempty"` // cells are raw xlsx values
}

// Table is the raw concatenation of every successfully parsed upload.
// Columns is the union of all headers in first-appearance order.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether name is one of the table's headers.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Append concatenates other onto t, extending the column union.
func (t *Table) Append(other *Table) {
	if other == nil {
		return
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		seen[c] = true
	}
	for _, c := range other.Columns {
		if !seen[c] {
			t.Columns = append(t.Columns, c)
			seen[c] = true
		}
	}
	t.Rows = append(t.Rows, other.Rows...)
}

// CampaignRecord is one typed row of campaign performance data.
type CampaignRecord struct {
	Row            int             `json:"row"`
	Date           *time.Time      `json:"date,omitempty"`
	Influencer     string          `json:"influencer"`
	Brand          string          `json:"brand"`
	Platform       string          `json:"platform"`
	Product        string          `json:"product,omitempty"`
	InfluencerType string          `json:"influencer_type,omitempty"`
	Reach          OptionalInt     `json:"reach"`
	Engagement     OptionalInt     `json:"engagement"`
	Orders         OptionalInt     `json:"orders"`
	PostCount      OptionalInt     `json:"post_count"`
	Spend          decimal.Decimal `json:"spend"`
	Revenue        decimal.Decimal `json:"revenue"`
	ROI            Ratio           `json:"roi"`
	SourceFile     string          `json:"source_file"`

	// Cells keeps every original cell so extra columns pass through to exports.
	Cells map[string]string `json:"-"`
}

// ROAS returns revenue/spend, unavailable when spend is zero.
func (r CampaignRecord) ROAS() Ratio {
	return Divide(r.Revenue, r.Spend)
}

// HasDate reports whether the row carries a known calendar date.
func (r CampaignRecord) HasDate() bool {
	return r.Date != nil
}

// CampaignDataset is an ordered sequence of records sharing one column schema.
type CampaignDataset struct {
	Columns  []string         `json:"columns"`
	Records  []CampaignRecord `json:"records"`
	Schema   SchemaDescriptor `json:"schema"`
	Coercion CoercionReport   `json:"coercion"`
}

// Len returns the number of records.
func (d *CampaignDataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// WithRecords returns a view sharing d's columns and schema over records.
func (d *CampaignDataset) WithRecords(records []CampaignRecord) *CampaignDataset {
	return &CampaignDataset{
		Columns:  d.Columns,
		Records:  records,
		Schema:   d.Schema,
		Coercion: d.Coercion,
	}
}

// CoercionReport counts cells that could not be coerced during validation.
// None of these conditions is fatal.
type CoercionReport struct {
	UnknownDates    int `json:"unknown_dates"`
	InvalidNumbers  int `json:"invalid_numbers"`
	NegativeAmounts int `json:"negative_amounts"`
	UnavailableROI  int `json:"unavailable_roi"`
}
