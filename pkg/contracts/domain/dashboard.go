package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateRange is an inclusive calendar-day range.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls on a day within the range.
func (r DateRange) Contains(t time.Time) bool {
	day := truncateDay(t)
	return !day.Before(truncateDay(r.Start)) && !day.After(truncateDay(r.End))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a calendar date in 2006-01-02 or RFC 3339 form.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return truncateDay(t), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
}

// FilterSpec is the user's current selection. Empty selections pass through.
type FilterSpec struct {
	Influencers      []string   `json:"influencers,omitempty"`
	Brands           []string   `json:"brands,omitempty"`
	Platforms        []string   `json:"platforms,omitempty"`
	InfluencerSearch string     `json:"influencer_search,omitempty"`
	BrandSearch      string     `json:"brand_search,omitempty"`
	DateRange        *DateRange `json:"date_range,omitempty"`
}

// IsEmpty reports whether the spec selects every row.
func (f FilterSpec) IsEmpty() bool {
	return len(f.Influencers) == 0 && len(f.Brands) == 0 && len(f.Platforms) == 0 &&
		strings.TrimSpace(f.InfluencerSearch) == "" && strings.TrimSpace(f.BrandSearch) == "" &&
		f.DateRange == nil
}

// Summary holds the scalar metrics of a filtered view.
type Summary struct {
	Records         int             `json:"records"`
	TotalSpend      decimal.Decimal `json:"total_spend"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	TotalROI        float64         `json:"total_roi"`
	AverageROAS     Ratio           `json:"average_roas"`
	ROIRatio        Ratio           `json:"roi_ratio"`
	IncrementalROAS Ratio           `json:"incremental_roas"`
	TotalReach      int64           `json:"total_reach"`
	TotalEngagement int64           `json:"total_engagement"`
	TotalOrders     int64           `json:"total_orders"`
	TotalPostCount  int64           `json:"total_post_count"`
}

// RankedRecord is one entry of a per-record ranking.
type RankedRecord struct {
	Rank       int             `json:"rank"`
	Row        int             `json:"row"`
	Influencer string          `json:"influencer"`
	Brand      string          `json:"brand"`
	Platform   string          `json:"platform"`
	Spend      decimal.Decimal `json:"spend"`
	Revenue    decimal.Decimal `json:"revenue"`
	Value      float64         `json:"value"`
	SourceFile string          `json:"source_file"`
}

// GroupSummary aggregates the records sharing one key.
type GroupSummary struct {
	Key        string          `json:"key"`
	Records    int             `json:"records"`
	Reach      int64           `json:"reach"`
	Engagement int64           `json:"engagement"`
	Spend      decimal.Decimal `json:"spend"`
	Revenue    decimal.Decimal `json:"revenue"`
	ROI        Ratio           `json:"roi"`
}

// Rankings groups the top-N tables.
type Rankings struct {
	TopROI            []RankedRecord `json:"top_roi"`
	TopROAS           []RankedRecord `json:"top_roas"`
	TopInfluencers    []GroupSummary `json:"top_influencers"`
	BottomInfluencers []GroupSummary `json:"bottom_influencers"`
}

// Groups holds the grouped aggregate tables. ByProduct is nil when the
// upload carried no product column.
type Groups struct {
	ByPlatform   []GroupSummary `json:"by_platform"`
	ByInfluencer []GroupSummary `json:"by_influencer"`
	ByProduct    []GroupSummary `json:"by_product,omitempty"`
}

// SeriesPoint is one day of the spend/revenue chart series.
type SeriesPoint struct {
	Date    string          `json:"date"`
	Records int             `json:"records"`
	Spend   decimal.Decimal `json:"spend"`
	Revenue decimal.Decimal `json:"revenue"`
	ROAS    Ratio           `json:"roas"`
}

// FilterOptions lists the selectable values of an unfiltered dataset.
type FilterOptions struct {
	Influencers []string   `json:"influencers"`
	Brands      []string   `json:"brands"`
	Platforms   []string   `json:"platforms"`
	MinDate     *time.Time `json:"min_date,omitempty"`
	MaxDate     *time.Time `json:"max_date,omitempty"`
}

// TableView is a dataset rendered as strings for display and export.
type TableView struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// DashboardView is everything the UI renders for one filter selection.
type DashboardView struct {
	Filter   FilterSpec    `json:"filter"`
	Summary  Summary       `json:"summary"`
	Rankings Rankings      `json:"rankings"`
	Groups   Groups        `json:"groups"`
	Series   []SeriesPoint `json:"series"`
	Options  FilterOptions `json:"options"`
	Table    TableView     `json:"table"`
}
