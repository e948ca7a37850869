package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"campaignpulse/internal/dataprocessing"
	"campaignpulse/internal/exporter"
	"campaignpulse/internal/infrastructure"
	"campaignpulse/internal/session"
	"campaignpulse/pkg/contracts/domain"
)

const basicHeader = "Date,Influencer,Brand,Platform,Spend,Revenue,ROI"

func csvUpload(name string, lines ...string) domain.UploadedFile {
	return domain.UploadedFile{Name: name, Data: []byte(strings.Join(lines, "\n") + "\n")}
}

var (
	amitFile = csvUpload("amit.csv", basicHeader, "2024-01-10,Amit,BrandX,Instagram,5000,20000,4.0")
	riyaFile = csvUpload("riya.csv", basicHeader, "2024-01-12,Riya,BrandY,YouTube,0,0,0")
	bothFile = csvUpload("campaign.csv", basicHeader,
		"2024-01-10,Amit,BrandX,Instagram,5000,20000,4.0",
		"2024-01-12,Riya,BrandY,YouTube,0,0,0")
)

func newTestService(t *testing.T, opts ...Option) *DashboardService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc, err := NewDashboardService(
		session.NewStore(logger, 0),
		dataprocessing.NewIngester(logger, dataprocessing.IngestLimits{MaxFiles: 5}),
		dataprocessing.NewAnalyzer(logger, dataprocessing.AnalyzerConfig{}),
		exporter.NewCSVWriter(logger, false),
		exporter.NewExcelWriter(logger),
		dataprocessing.BasicSchema(),
		logger,
		opts...,
	)
	require.NoError(t, err)
	return svc
}

func TestParseUploadMode(t *testing.T) {
	tests := []struct {
		in      string
		want    UploadMode
		wantErr bool
	}{
		{"", UploadReplace, false},
		{"replace", UploadReplace, false},
		{" Append ", UploadAppend, false},
		{"merge", "", true},
	}
	for _, tt := range tests {
		got, err := ParseUploadMode(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidUploadMode)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestDashboardService_UploadAndDashboard(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	sess := svc.CreateSession(ctx)

	result, err := svc.Upload(ctx, sess.SessionID, UploadReplace, []domain.UploadedFile{bothFile})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, []string{"campaign.csv"}, result.FilesLoaded)
	assert.Empty(t, result.FileErrors)
	assert.Equal(t, dataprocessing.SchemaBasic, result.Schema.Name)
	assert.Equal(t, []string{"Amit", "Riya"}, result.Options.Influencers)

	view, err := svc.Dashboard(ctx, sess.SessionID, domain.FilterSpec{})
	require.NoError(t, err)

	assert.Equal(t, 2, view.Summary.Records)
	assert.True(t, view.Summary.TotalSpend.Equal(decimal.NewFromInt(5000)))
	assert.True(t, view.Summary.TotalRevenue.Equal(decimal.NewFromInt(20000)))
	roas, ok := view.Summary.AverageROAS.Value()
	require.True(t, ok)
	assert.InDelta(t, 4.0, roas, 1e-9)
	require.Len(t, view.Rankings.TopROAS, 1, "zero-spend rows are not ranked by ROAS")
	assert.Equal(t, "Amit", view.Rankings.TopROAS[0].Influencer)

	info, err := svc.Session(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.True(t, info.HasData)
	assert.Equal(t, 2, info.Rows)
	assert.Equal(t, dataprocessing.SchemaBasic, info.Schema)
}

func TestDashboardService_AppendThenReplace(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	id := svc.CreateSession(ctx).SessionID

	_, err := svc.Upload(ctx, id, UploadReplace, []domain.UploadedFile{amitFile})
	require.NoError(t, err)

	result, err := svc.Upload(ctx, id, UploadAppend, []domain.UploadedFile{riyaFile})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, []string{"riya.csv"}, result.FilesLoaded)

	info, err := svc.Session(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"amit.csv", "riya.csv"}, info.Files)

	view, err := svc.Dashboard(ctx, id, domain.FilterSpec{})
	require.NoError(t, err)
	require.Len(t, view.Table.Rows, 2)

	result, err = svc.Upload(ctx, id, UploadReplace, []domain.UploadedFile{riyaFile})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)

	info, err = svc.Session(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"riya.csv"}, info.Files)
}

func TestDashboardService_AppendIntoEmptySession(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	id := svc.CreateSession(ctx).SessionID

	result, err := svc.Upload(ctx, id, UploadAppend, []domain.UploadedFile{amitFile})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)
}

func TestDashboardService_MissingColumnsKeepsPreviousDataset(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	id := svc.CreateSession(ctx).SessionID

	_, err := svc.Upload(ctx, id, UploadReplace, []domain.UploadedFile{bothFile})
	require.NoError(t, err)

	noRevenue := csvUpload("no_revenue.csv",
		"Influencer,Brand,Platform,Spend,ROI",
		"Kabir,BrandZ,Instagram,100,1.0")

	for _, mode := range []UploadMode{UploadReplace, UploadAppend} {
		_, err = svc.Upload(ctx, id, mode, []domain.UploadedFile{noRevenue})

		var uploadErr *UploadError
		require.ErrorAs(t, err, &uploadErr, string(mode))
		var mce *dataprocessing.MissingColumnsError
		require.ErrorAs(t, err, &mce)
		assert.Equal(t, []string{"Revenue"}, mce.Missing)

		info, err := svc.Session(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, info.Rows, "previous dataset must survive a %s rejection", mode)
		assert.Equal(t, []string{"campaign.csv"}, info.Files)
	}
}

func TestDashboardService_AppendChecksColumnsOfNewBatch(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	id := svc.CreateSession(ctx).SessionID

	_, err := svc.Upload(ctx, id, UploadReplace, []domain.UploadedFile{bothFile})
	require.NoError(t, err)

	// The stored table already carries Revenue; the appended batch does not.
	_, err = svc.Upload(ctx, id, UploadAppend, []domain.UploadedFile{csvUpload("kabir.csv",
		"Influencer,Brand,Platform,Spend,ROI",
		"Kabir,BrandZ,Instagram,100,1.0")})
	var mce *dataprocessing.MissingColumnsError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, []string{"Revenue"}, mce.Missing)

	view, err := svc.Dashboard(ctx, id, domain.FilterSpec{})
	require.NoError(t, err)
	assert.Equal(t, 2, view.Summary.Records)
	assert.True(t, view.Summary.TotalRevenue.Equal(decimal.NewFromInt(20000)))
}

func TestDashboardService_CorruptSecondFile(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	id := svc.CreateSession(ctx).SessionID

	corrupt := domain.UploadedFile{Name: "broken.xlsx", Data: []byte("definitely not a zip")}

	result, err := svc.Upload(ctx, id, UploadReplace, []domain.UploadedFile{amitFile, corrupt})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Rows)
	assert.Equal(t, []string{"amit.csv"}, result.FilesLoaded)
	require.Len(t, result.FileErrors, 1)
	assert.Equal(t, "broken.xlsx", result.FileErrors[0].File)
	assert.NotEmpty(t, result.FileErrors[0].Error)
}

func TestDashboardService_NoValidData(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	id := svc.CreateSession(ctx).SessionID

	_, err := svc.Upload(ctx, id, UploadReplace, []domain.UploadedFile{
		{Name: "a.xlsx", Data: []byte("junk")},
		{Name: "b.pdf", Data: []byte("%PDF")},
	})

	assert.ErrorIs(t, err, dataprocessing.ErrNoValidData)
	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Len(t, uploadErr.FileErrors, 2)

	info, err := svc.Session(ctx, id)
	require.NoError(t, err)
	assert.False(t, info.HasData)
}

func TestDashboardService_UploadGuards(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	id := svc.CreateSession(ctx).SessionID

	_, err := svc.Upload(ctx, id, UploadReplace, nil)
	assert.ErrorIs(t, err, dataprocessing.ErrNoFilesUploaded)

	six := make([]domain.UploadedFile, 6)
	for i := range six {
		six[i] = amitFile
	}
	_, err = svc.Upload(ctx, id, UploadReplace, six)
	assert.ErrorIs(t, err, dataprocessing.ErrTooManyFiles)

	_, err = svc.Upload(ctx, id, UploadMode("merge"), []domain.UploadedFile{amitFile})
	assert.ErrorIs(t, err, ErrInvalidUploadMode)
}

func TestDashboardService_UnknownSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Upload(ctx, "missing", UploadReplace, []domain.UploadedFile{amitFile})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Dashboard(ctx, "missing", domain.FilterSpec{})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	err = svc.Export(ctx, "missing", domain.FilterSpec{}, ExportCSV, io.Discard)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Session(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, svc.EndSession(ctx, "missing"), ErrSessionNotFound)
}

func TestDashboardService_NoDataset(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	id := svc.CreateSession(ctx).SessionID

	_, err := svc.Dashboard(ctx, id, domain.FilterSpec{})
	assert.ErrorIs(t, err, ErrNoDataset)

	err = svc.Export(ctx, id, domain.FilterSpec{}, ExportXLSX, io.Discard)
	assert.ErrorIs(t, err, ErrNoDataset)
}

func TestDashboardService_EndSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	id := svc.CreateSession(ctx).SessionID
	assert.Equal(t, 1, svc.SessionCount())

	require.NoError(t, svc.EndSession(ctx, id))

	assert.Equal(t, 0, svc.SessionCount())
	_, err := svc.Dashboard(ctx, id, domain.FilterSpec{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDashboardService_ExportCSVFiltered(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	id := svc.CreateSession(ctx).SessionID
	_, err := svc.Upload(ctx, id, UploadReplace, []domain.UploadedFile{bothFile})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = svc.Export(ctx, id, domain.FilterSpec{InfluencerSearch: "RIY"}, ExportCSV, &buf)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], basicHeader))
	assert.Contains(t, lines[0], domain.SourceFileColumn)
	assert.Contains(t, lines[1], "Riya")
	assert.Contains(t, lines[1], "N/A", "zero spend renders ROAS as N/A")
}

func TestDashboardService_ExportXLSX(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	id := svc.CreateSession(ctx).SessionID
	_, err := svc.Upload(ctx, id, UploadReplace, []domain.UploadedFile{bothFile})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(ctx, id, domain.FilterSpec{Platforms: []string{"Instagram"}}, ExportXLSX, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exporter.DatasetSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Contains(t, rows[1], "Amit")
}

func TestDashboardService_UnsupportedExportFormat(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	id := svc.CreateSession(ctx).SessionID
	_, err := svc.Upload(ctx, id, UploadReplace, []domain.UploadedFile{amitFile})
	require.NoError(t, err)

	err = svc.Export(ctx, id, domain.FilterSpec{}, ExportFormat("pdf"), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdf")
}

func TestDashboardService_TemplateRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	var buf bytes.Buffer
	require.NoError(t, svc.Template(ctx, &buf))

	id := svc.CreateSession(ctx).SessionID
	result, err := svc.Upload(ctx, id, UploadReplace, []domain.UploadedFile{{Name: "template.xlsx", Data: buf.Bytes()}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)
	assert.Equal(t, []string{"Amit"}, result.Options.Influencers)
}

func TestDashboardService_CancelledContext(t *testing.T) {
	svc := newTestService(t)
	id := svc.CreateSession(context.Background()).SessionID

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Upload(ctx, id, UploadReplace, []domain.UploadedFile{amitFile})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDashboardService_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := infrastructure.CreateBusinessMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	svc := newTestService(t, WithTelemetry(nil, metrics))
	id := svc.CreateSession(ctx).SessionID

	corrupt := domain.UploadedFile{Name: "broken.xlsx", Data: []byte("nope")}
	_, err = svc.Upload(ctx, id, UploadReplace, []domain.UploadedFile{bothFile, corrupt})
	require.NoError(t, err)
	_, err = svc.Dashboard(ctx, id, domain.FilterSpec{})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}

	assert.Equal(t, int64(1), sums["campaign_uploads_total"])
	assert.Equal(t, int64(1), sums["campaign_files_parsed_total"])
	assert.Equal(t, int64(1), sums["campaign_files_failed_total"])
	assert.Equal(t, int64(2), sums["campaign_rows_ingested_total"])
	assert.Equal(t, int64(1), sums["campaign_dashboard_computations_total"])
}
