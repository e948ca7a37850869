package dataprocessing

import (
	"strings"

	"campaignpulse/pkg/contracts/domain"
)

// Filter returns the records of ds matching spec. Dimensions are combined with
// AND and an empty selection passes every row. A non-blank search string
// replaces the explicit selection on its dimension with every distinct value
// containing it, case-insensitively. ds is never modified.
func Filter(ds *domain.CampaignDataset, spec domain.FilterSpec) *domain.CampaignDataset {
	if ds == nil {
		return nil
	}

	influencers := effectiveSet(ds.Records, spec.Influencers, spec.InfluencerSearch,
		func(r domain.CampaignRecord) string { return r.Influencer })
	brands := effectiveSet(ds.Records, spec.Brands, spec.BrandSearch,
		func(r domain.CampaignRecord) string { return r.Brand })
	platforms := effectiveSet(ds.Records, spec.Platforms, "",
		func(r domain.CampaignRecord) string { return r.Platform })

	records := make([]domain.CampaignRecord, 0, len(ds.Records))
	for _, rec := range ds.Records {
		if !influencers.allows(rec.Influencer) ||
			!brands.allows(rec.Brand) ||
			!platforms.allows(rec.Platform) {
			continue
		}
		if spec.DateRange != nil && (!rec.HasDate() || !spec.DateRange.Contains(*rec.Date)) {
			continue
		}
		records = append(records, rec)
	}

	return ds.WithRecords(records)
}

// memberSet is nil when the dimension is unfiltered.
type memberSet map[string]struct{}

func (m memberSet) allows(v string) bool {
	if m == nil {
		return true
	}
	_, ok := m[v]
	return ok
}

func effectiveSet(records []domain.CampaignRecord, selected []string, search string, key func(domain.CampaignRecord) string) memberSet {
	search = strings.ToLower(strings.TrimSpace(search))
	if search != "" {
		set := memberSet{}
		for _, rec := range records {
			v := key(rec)
			if strings.Contains(strings.ToLower(v), search) {
				set[v] = struct{}{}
			}
		}
		return set
	}

	if len(selected) == 0 {
		return nil
	}
	set := make(memberSet, len(selected))
	for _, v := range selected {
		set[v] = struct{}{}
	}
	return set
}
