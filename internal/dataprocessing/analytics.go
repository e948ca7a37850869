package dataprocessing

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"campaignpulse/pkg/contracts/domain"
)

// AnalyzerConfig holds the ranking sizes.
type AnalyzerConfig struct {
	TopN         int // per-record ROI and ROAS rankings
	LeaderboardN int // top and bottom influencer groups
}

// Analyzer computes metrics, rankings and grouped aggregates over a view.
// It holds no state between calls; every result is recomputed from its input.
type Analyzer struct {
	logger *slog.Logger
	config AnalyzerConfig
}

// NewAnalyzer creates an analyzer, defaulting TopN to 3 and LeaderboardN to 5.
func NewAnalyzer(logger *slog.Logger, config AnalyzerConfig) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.TopN <= 0 {
		config.TopN = 3
	}
	if config.LeaderboardN <= 0 {
		config.LeaderboardN = 5
	}
	return &Analyzer{
		logger: logger.With(slog.String("component", "analyzer")),
		config: config,
	}
}

// Dashboard filters ds by spec and computes the full view. Options are taken
// from the unfiltered dataset.
func (a *Analyzer) Dashboard(ctx context.Context, ds *domain.CampaignDataset, spec domain.FilterSpec) *domain.DashboardView {
	view := Filter(ds, spec)

	dv := &domain.DashboardView{
		Filter:   spec,
		Summary:  a.Summarize(view),
		Rankings: a.Rank(view),
		Groups:   a.Group(view),
		Series:   a.Series(view),
		Options:  a.Options(ds),
		Table:    Tabulate(view),
	}

	a.logger.DebugContext(ctx, "Dashboard computed",
		slog.Int("source_rows", ds.Len()),
		slog.Int("filtered_rows", view.Len()),
		slog.Bool("filtered", !spec.IsEmpty()))

	return dv
}

// Summarize computes the scalar metrics of view.
func (a *Analyzer) Summarize(view *domain.CampaignDataset) domain.Summary {
	var (
		s        domain.Summary
		roiSum   = decimal.Zero
		roasSum  = decimal.Zero
		roasRows int64
	)
	s.TotalSpend = decimal.Zero
	s.TotalRevenue = decimal.Zero

	for _, rec := range view.Records {
		s.Records++
		s.TotalSpend = s.TotalSpend.Add(rec.Spend)
		s.TotalRevenue = s.TotalRevenue.Add(rec.Revenue)

		if v, ok := rec.ROI.Value(); ok {
			roiSum = roiSum.Add(decimal.NewFromFloat(v))
		}
		if rec.Spend.IsPositive() {
			roasSum = roasSum.Add(rec.Revenue.Div(rec.Spend))
			roasRows++
		}

		s.TotalReach += rec.Reach.Value
		s.TotalEngagement += rec.Engagement.Value
		s.TotalOrders += rec.Orders.Value
		s.TotalPostCount += rec.PostCount.Value
	}

	s.TotalROI = roiSum.InexactFloat64()
	s.AverageROAS = domain.NotAvailable()
	if roasRows > 0 && view.Schema.Has(domain.FieldSpend) && view.Schema.Has(domain.FieldRevenue) {
		s.AverageROAS = domain.Divide(roasSum, decimal.NewFromInt(roasRows))
	}
	s.ROIRatio = domain.Divide(s.TotalRevenue, s.TotalSpend)
	s.IncrementalROAS = domain.Divide(s.TotalRevenue.Sub(s.TotalSpend), s.TotalSpend)

	return s
}

// Rank builds the per-record and per-influencer rankings. Sorts are stable
// so ties keep original row order.
func (a *Analyzer) Rank(view *domain.CampaignDataset) domain.Rankings {
	byInfluencer := groupBy(view.Records, func(r domain.CampaignRecord) string { return r.Influencer })

	return domain.Rankings{
		TopROI:            topRecords(view.Records, a.config.TopN, func(r domain.CampaignRecord) domain.Ratio { return r.ROI }),
		TopROAS:           topRecords(view.Records, a.config.TopN, rankableROAS),
		TopInfluencers:    leaderboard(byInfluencer, a.config.LeaderboardN, true),
		BottomInfluencers: leaderboard(byInfluencer, a.config.LeaderboardN, false),
	}
}

// rankableROAS is the record's ROAS when spend is positive, matching the
// rows AverageROAS averages over.
func rankableROAS(r domain.CampaignRecord) domain.Ratio {
	if !r.Spend.IsPositive() {
		return domain.NotAvailable()
	}
	return r.ROAS()
}

// Group aggregates view by platform, influencer and (when present) product.
func (a *Analyzer) Group(view *domain.CampaignDataset) domain.Groups {
	g := domain.Groups{
		ByPlatform:   groupBy(view.Records, func(r domain.CampaignRecord) string { return r.Platform }),
		ByInfluencer: groupBy(view.Records, func(r domain.CampaignRecord) string { return r.Influencer }),
	}
	if view.Schema.Has(domain.FieldProduct) {
		g.ByProduct = groupBy(view.Records, func(r domain.CampaignRecord) string { return r.Product })
	}
	return g
}

// Series returns per-day spend and revenue over records with a known date.
func (a *Analyzer) Series(view *domain.CampaignDataset) []domain.SeriesPoint {
	points := map[string]*domain.SeriesPoint{}
	for _, rec := range view.Records {
		if !rec.HasDate() {
			continue
		}
		day := rec.Date.Format(domain.DateLayout)
		p, ok := points[day]
		if !ok {
			p = &domain.SeriesPoint{Date: day, Spend: decimal.Zero, Revenue: decimal.Zero}
			points[day] = p
		}
		p.Records++
		p.Spend = p.Spend.Add(rec.Spend)
		p.Revenue = p.Revenue.Add(rec.Revenue)
	}

	series := make([]domain.SeriesPoint, 0, len(points))
	for _, p := range points {
		p.ROAS = domain.Divide(p.Revenue, p.Spend)
		series = append(series, *p)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series
}

// Options lists the selectable filter values of ds in first-appearance order.
func (a *Analyzer) Options(ds *domain.CampaignDataset) domain.FilterOptions {
	opts := domain.FilterOptions{
		Influencers: []string{},
		Brands:      []string{},
		Platforms:   []string{},
	}
	seen := map[string]map[string]bool{"i": {}, "b": {}, "p": {}}
	add := func(kind string, list *[]string, v string) {
		if v == "" || seen[kind][v] {
			return
		}
		seen[kind][v] = true
		*list = append(*list, v)
	}

	var minDate, maxDate time.Time
	for _, rec := range ds.Records {
		add("i", &opts.Influencers, rec.Influencer)
		add("b", &opts.Brands, rec.Brand)
		add("p", &opts.Platforms, rec.Platform)

		if !rec.HasDate() {
			continue
		}
		if minDate.IsZero() || rec.Date.Before(minDate) {
			minDate = *rec.Date
		}
		if maxDate.IsZero() || rec.Date.After(maxDate) {
			maxDate = *rec.Date
		}
	}
	if !minDate.IsZero() {
		opts.MinDate = &minDate
		opts.MaxDate = &maxDate
	}
	return opts
}

func topRecords(records []domain.CampaignRecord, n int, metric func(domain.CampaignRecord) domain.Ratio) []domain.RankedRecord {
	type scored struct {
		rec   domain.CampaignRecord
		value float64
	}

	candidates := make([]scored, 0, len(records))
	for _, rec := range records {
		if v, ok := metric(rec).Value(); ok {
			candidates = append(candidates, scored{rec: rec, value: v})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].value > candidates[j].value
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}

	ranked := make([]domain.RankedRecord, len(candidates))
	for i, c := range candidates {
		ranked[i] = domain.RankedRecord{
			Rank:       i + 1,
			Row:        c.rec.Row,
			Influencer: c.rec.Influencer,
			Brand:      c.rec.Brand,
			Platform:   c.rec.Platform,
			Spend:      c.rec.Spend,
			Revenue:    c.rec.Revenue,
			Value:      c.value,
			SourceFile: c.rec.SourceFile,
		}
	}
	return ranked
}

// groupBy sums records sharing a key. Groups are returned sorted by key.
func groupBy(records []domain.CampaignRecord, key func(domain.CampaignRecord) string) []domain.GroupSummary {
	index := map[string]int{}
	var groups []domain.GroupSummary

	for _, rec := range records {
		k := key(rec)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, domain.GroupSummary{Key: k, Spend: decimal.Zero, Revenue: decimal.Zero})
		}
		g := &groups[i]
		g.Records++
		g.Reach += rec.Reach.Value
		g.Engagement += rec.Engagement.Value
		g.Spend = g.Spend.Add(rec.Spend)
		g.Revenue = g.Revenue.Add(rec.Revenue)
	}

	for i := range groups {
		groups[i].ROI = domain.Divide(groups[i].Revenue, groups[i].Spend)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	if groups == nil {
		groups = []domain.GroupSummary{}
	}
	return groups
}

// leaderboard ranks groups with an available ROI, best first when top is true
// and worst first otherwise.
func leaderboard(groups []domain.GroupSummary, n int, top bool) []domain.GroupSummary {
	ranked := make([]domain.GroupSummary, 0, len(groups))
	for _, g := range groups {
		if g.ROI.Available() {
			ranked = append(ranked, g)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		vi, vj := ranked[i].ROI.Or(0), ranked[j].ROI.Or(0)
		if top {
			return vi > vj
		}
		return vi < vj
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
