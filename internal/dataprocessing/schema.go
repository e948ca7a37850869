package dataprocessing

import (
	"fmt"
	"sort"
	"strings"

	"campaignpulse/pkg/contracts/domain"
)

// Schema names accepted by SchemaByName.
const (
	SchemaBasic    = "basic"
	SchemaExtended = "extended"
)

// BasicSchema is the campaign sheet with a supplied ROI column.
func BasicSchema() domain.Schema {
	return domain.Schema{
		Name:     SchemaBasic,
		Required: []string{"Influencer", "Brand", "Platform", "Spend", "Revenue", "ROI"},
		Columns:  commonColumns("Spend"),
	}
}

// ExtendedSchema is the per-post sheet. Spend is read from "Cost" and ROI is
// derived from revenue and spend unless a ROI column is also present.
func ExtendedSchema() domain.Schema {
	return domain.Schema{
		Name: SchemaExtended,
		Required: []string{
			"Influencer", "Platform", "Brand", "Product", "Influencer Type",
			"Post Count", "Reach", "Engagement", "Cost", "Revenue",
		},
		Columns: commonColumns("Cost"),
	}
}

func commonColumns(spend string) map[domain.Field]string {
	return map[domain.Field]string{
		domain.FieldDate:           "Date",
		domain.FieldInfluencer:     "Influencer",
		domain.FieldBrand:          "Brand",
		domain.FieldPlatform:       "Platform",
		domain.FieldProduct:        "Product",
		domain.FieldInfluencerType: "Influencer Type",
		domain.FieldReach:          "Reach",
		domain.FieldEngagement:     "Engagement",
		domain.FieldOrders:         "Orders",
		domain.FieldPostCount:      "Post Count",
		domain.FieldSpend:          spend,
		domain.FieldRevenue:        "Revenue",
		domain.FieldROI:            "ROI",
	}
}

var schemas = map[string]func() domain.Schema{
	SchemaBasic:    BasicSchema,
	SchemaExtended: ExtendedSchema,
}

// SchemaByName returns the named schema.
func SchemaByName(name string) (domain.Schema, error) {
	build, ok := schemas[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return domain.Schema{}, fmt.Errorf("unknown schema %q (known: %s)", name, strings.Join(SchemaNames(), ", "))
	}
	return build(), nil
}

// SchemaNames lists the known schema names in sorted order.
func SchemaNames() []string {
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MissingColumns returns required − present, in required order.
func MissingColumns(schema domain.Schema, columns []string) []string {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	var missing []string
	for _, req := range schema.Required {
		if !present[req] {
			missing = append(missing, req)
		}
	}
	return missing
}
