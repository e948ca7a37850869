package dataprocessing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"campaignpulse/pkg/contracts/domain"
)

var basicHeader = []string{"Date", "Influencer", "Brand", "Platform", "Spend", "Revenue", "ROI"}

// workbook builds an in-memory xlsx whose first sheet holds rows.
func workbook(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func csvFile(name string, lines ...string) domain.UploadedFile {
	return domain.UploadedFile{Name: name, Data: []byte(strings.Join(lines, "\n") + "\n")}
}

// table builds a raw table from a header and string rows, tagged with source.
func table(source string, header []string, rows ...[]string) *domain.Table {
	t := &domain.Table{Columns: header}
	for _, r := range rows {
		cells := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(r) {
				cells[h] = r[i]
			}
		}
		t.Rows = append(t.Rows, domain.Row{Cells: cells, SourceFile: source})
	}
	return t
}

// basicDataset validates rows against the basic schema.
func basicDataset(t *testing.T, rows ...[]string) *domain.CampaignDataset {
	t.Helper()
	ds, err := Validate(table("campaign.xlsx", basicHeader, rows...), BasicSchema())
	require.NoError(t, err)
	return ds
}

// amitRiya is the two-row dataset used by several scenarios.
func amitRiya(t *testing.T) *domain.CampaignDataset {
	return basicDataset(t,
		[]string{"2024-01-10", "Amit", "BrandX", "Instagram", "5000", "20000", "4.0"},
		[]string{"2024-01-12", "Riya", "BrandY", "YouTube", "0", "0", "0"},
	)
}

func influencers(ds *domain.CampaignDataset) []string {
	out := make([]string, len(ds.Records))
	for i, r := range ds.Records {
		out[i] = r.Influencer
	}
	return out
}
