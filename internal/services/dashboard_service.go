package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"campaignpulse/internal/dataprocessing"
	"campaignpulse/internal/exporter"
	"campaignpulse/internal/infrastructure"
	"campaignpulse/internal/session"
	"campaignpulse/pkg/contracts/domain"
)

// UploadMode selects how an upload combines with the session's data.
type UploadMode string

const (
	// UploadReplace discards previous uploads.
	UploadReplace UploadMode = "replace"
	// UploadAppend concatenates onto previous uploads and revalidates the whole.
	UploadAppend UploadMode = "append"
)

// UploadModes lists the accepted modes.
var UploadModes = []string{string(UploadReplace), string(UploadAppend)}

// ParseUploadMode accepts "replace", "append" or "" (replace).
func ParseUploadMode(s string) (UploadMode, error) {
	switch UploadMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", UploadReplace:
		return UploadReplace, nil
	case UploadAppend:
		return UploadAppend, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidUploadMode, s)
	}
}

// ExportFormat names a download format.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// UploadResult summarises the dataset a successful upload produced.
type UploadResult struct {
	SessionID   string                  `json:"session_id"`
	Mode        UploadMode              `json:"mode"`
	Rows        int                     `json:"rows"`
	FilesLoaded []string                `json:"files_loaded"`
	FileErrors  []FileError             `json:"file_errors"`
	Columns     []string                `json:"columns"`
	Schema      domain.SchemaDescriptor `json:"schema"`
	Coercion    domain.CoercionReport   `json:"coercion"`
	Options     domain.FilterOptions    `json:"options"`
}

// SessionInfo describes a session without its data.
type SessionInfo struct {
	SessionID  string    `json:"session_id"`
	CreatedAt  time.Time `json:"created_at"`
	LastAccess time.Time `json:"last_access"`
	Files      []string  `json:"files"`
	Schema     string    `json:"schema,omitempty"`
	Rows       int       `json:"rows"`
	HasData    bool      `json:"has_data"`
}

// DashboardService runs the upload, dashboard and export pipeline against
// per-session state.
type DashboardService struct {
	store    *session.Store
	ingester *dataprocessing.Ingester
	analyzer *dataprocessing.Analyzer
	csv      *exporter.CSVWriter
	excel    *exporter.ExcelWriter
	schema   domain.Schema
	tracer   trace.Tracer
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// Option configures a DashboardService.
type Option func(*DashboardService)

// WithTelemetry records spans with tracer and counters on metrics.
func WithTelemetry(tracer trace.Tracer, metrics *infrastructure.BusinessMetrics) Option {
	return func(s *DashboardService) {
		if tracer != nil {
			s.tracer = tracer
		}
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// NewDashboardService creates the service. Without WithTelemetry, spans and
// metrics go to no-op providers.
func NewDashboardService(
	store *session.Store,
	ingester *dataprocessing.Ingester,
	analyzer *dataprocessing.Analyzer,
	csvWriter *exporter.CSVWriter,
	excelWriter *exporter.ExcelWriter,
	schema domain.Schema,
	logger *slog.Logger,
	opts ...Option,
) (*DashboardService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &DashboardService{
		store:    store,
		ingester: ingester,
		analyzer: analyzer,
		csv:      csvWriter,
		excel:    excelWriter,
		schema:   schema,
		tracer:   tracenoop.NewTracerProvider().Tracer(infrastructure.InstrumentationName),
		logger:   logger.With(slog.String("component", "dashboard_service")),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.metrics == nil {
		m, err := infrastructure.CreateBusinessMetrics(metricnoop.NewMeterProvider().Meter(infrastructure.InstrumentationName))
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics: %w", err)
		}
		s.metrics = m
	}

	s.logger.Info("DashboardService initialized",
		slog.String("schema", schema.Name),
		slog.Int("required_columns", len(schema.Required)))

	return s, nil
}

// Schema returns the schema uploads are validated against.
func (s *DashboardService) Schema() domain.Schema {
	return s.schema
}

// CreateSession starts an empty session.
func (s *DashboardService) CreateSession(ctx context.Context) *SessionInfo {
	sess := s.store.Create()
	s.logger.InfoContext(ctx, "Session started", slog.String("session_id", sess.ID))
	return sessionInfo(sess)
}

// Session returns a session's metadata.
func (s *DashboardService) Session(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// EndSession discards a session and its dataset.
func (s *DashboardService) EndSession(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(sessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	s.logger.InfoContext(ctx, "Session ended", slog.String("session_id", sessionID))
	return nil
}

// Upload ingests files into the session. In replace mode the files become
// the session's data; in append mode they are concatenated onto the previous
// raw upload and the whole is revalidated. A rejected upload leaves the
// session's previous dataset untouched.
func (s *DashboardService) Upload(ctx context.Context, sessionID string, mode UploadMode, files []domain.UploadedFile) (*UploadResult, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.upload", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("upload.mode", string(mode)),
		attribute.Int("upload.files", len(files)),
	))
	defer span.End()

	result, err := s.upload(ctx, sessionID, mode, files)

	outcome := "success"
	if err != nil {
		outcome = "rejected"
		infrastructure.RecordError(ctx, err)
	}
	s.metrics.UploadsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", string(mode)),
		attribute.String("outcome", outcome),
	))

	return result, err
}

func (s *DashboardService) upload(ctx context.Context, sessionID string, mode UploadMode, files []domain.UploadedFile) (*UploadResult, error) {
	mode, err := ParseUploadMode(string(mode))
	if err != nil {
		return nil, err
	}
	if _, err := s.lookup(sessionID); err != nil {
		return nil, err
	}

	ingested, err := s.ingester.Ingest(ctx, files)
	if ingested != nil {
		s.metrics.FilesParsed.Add(ctx, int64(len(ingested.FilesLoaded)))
		s.metrics.FilesFailed.Add(ctx, int64(len(ingested.FileErrors)))
	}
	if err != nil {
		if errors.Is(err, dataprocessing.ErrNoValidData) && ingested != nil {
			return nil, &UploadError{Err: err, FileErrors: fileErrors(ingested.FileErrors)}
		}
		return nil, err
	}
	s.metrics.RowsIngested.Add(ctx, int64(ingested.Table.Len()))

	sess, err := s.store.Update(sessionID, func(sess *session.Session) error {
		table := ingested.Table
		loaded := ingested.FilesLoaded
		if mode == UploadAppend && sess.Table != nil {
			// The previous upload must not mask columns the new batch lacks.
			if missing := dataprocessing.MissingColumns(s.schema, ingested.Table.Columns); len(missing) > 0 {
				return &dataprocessing.MissingColumnsError{Schema: s.schema.Name, Missing: missing}
			}
			table = concat(sess.Table, ingested.Table)
			loaded = append(append([]string(nil), sess.Files...), ingested.FilesLoaded...)
		}

		ds, err := dataprocessing.Validate(table, s.schema)
		if err != nil {
			return err
		}

		sess.Table = table
		sess.Dataset = ds
		sess.Files = loaded
		sess.SchemaName = s.schema.Name
		return nil
	})
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		if dataprocessing.IsMissingColumns(err) {
			s.metrics.ValidationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("schema", s.schema.Name)))
			s.logger.WarnContext(ctx, "Upload rejected",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()))
		}
		return nil, &UploadError{Err: err, FileErrors: fileErrors(ingested.FileErrors)}
	}

	ds := sess.Dataset
	s.logger.InfoContext(ctx, "Upload accepted",
		slog.String("session_id", sessionID),
		slog.String("mode", string(mode)),
		slog.Int("rows", ds.Len()),
		slog.Int("files_loaded", len(ingested.FilesLoaded)),
		slog.Int("files_failed", len(ingested.FileErrors)),
		slog.Int("unknown_dates", ds.Coercion.UnknownDates),
		slog.Int("invalid_numbers", ds.Coercion.InvalidNumbers))

	return &UploadResult{
		SessionID:   sessionID,
		Mode:        mode,
		Rows:        ds.Len(),
		FilesLoaded: ingested.FilesLoaded,
		FileErrors:  fileErrors(ingested.FileErrors),
		Columns:     ds.Columns,
		Schema:      ds.Schema,
		Coercion:    ds.Coercion,
		Options:     s.analyzer.Options(ds),
	}, nil
}

// concat returns a new table holding prev followed by next. Neither input
// is modified since prev may still be referenced by earlier session copies.
func concat(prev, next *domain.Table) *domain.Table {
	merged := &domain.Table{
		Columns: append([]string(nil), prev.Columns...),
		Rows:    make([]domain.Row, 0, len(prev.Rows)+len(next.Rows)),
	}
	merged.Rows = append(merged.Rows, prev.Rows...)
	merged.Append(next)
	return merged
}

// Dashboard filters the session's dataset and computes the full view.
func (s *DashboardService) Dashboard(ctx context.Context, sessionID string, spec domain.FilterSpec) (*domain.DashboardView, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.compute", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.Bool("filter.active", !spec.IsEmpty()),
	))
	defer span.End()

	ds, err := s.dataset(sessionID)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	view := s.analyzer.Dashboard(ctx, ds, spec)

	s.metrics.DashboardComputations.Add(ctx, 1)
	s.metrics.DashboardDuration.Record(ctx, time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("dashboard.rows", view.Summary.Records))

	return view, nil
}

// Export writes the session's filtered dataset to w in format.
func (s *DashboardService) Export(ctx context.Context, sessionID string, spec domain.FilterSpec, format ExportFormat, w io.Writer) error {
	ctx, span := s.tracer.Start(ctx, "dashboard.export", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("export.format", string(format)),
	))
	defer span.End()

	ds, err := s.dataset(sessionID)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return err
	}

	view := dataprocessing.Filter(ds, spec)
	span.SetAttributes(attribute.Int("export.rows", view.Len()))

	switch format {
	case ExportCSV:
		err = s.csv.WriteDataset(ctx, w, view)
	case ExportXLSX:
		err = s.excel.WriteDataset(ctx, w, view)
	default:
		err = fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return fmt.Errorf("export %s: %w", format, err)
	}

	s.metrics.ExportsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("format", string(format))))
	return nil
}

// Template writes the example upload workbook.
func (s *DashboardService) Template(ctx context.Context, w io.Writer) error {
	if err := s.excel.WriteTemplate(w); err != nil {
		return fmt.Errorf("template: %w", err)
	}
	s.metrics.ExportsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("format", "template")))
	return nil
}

// SessionCount returns the number of live sessions.
func (s *DashboardService) SessionCount() int {
	return s.store.Len()
}

func (s *DashboardService) lookup(sessionID string) (*session.Session, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

func (s *DashboardService) dataset(sessionID string) (*domain.CampaignDataset, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.HasDataset() {
		return nil, ErrNoDataset
	}
	return sess.Dataset, nil
}

func sessionInfo(sess *session.Session) *SessionInfo {
	info := &SessionInfo{
		SessionID:  sess.ID,
		CreatedAt:  sess.CreatedAt,
		LastAccess: sess.LastAccess,
		Files:      sess.Files,
		Schema:     sess.SchemaName,
		HasData:    sess.HasDataset(),
	}
	if info.Files == nil {
		info.Files = []string{}
	}
	if sess.HasDataset() {
		info.Rows = sess.Dataset.Len()
	}
	return info
}
