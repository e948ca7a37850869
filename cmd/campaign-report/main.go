package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"campaignpulse/internal/dataprocessing"
	"campaignpulse/internal/exporter"
	"campaignpulse/internal/infrastructure"
	"campaignpulse/internal/services"
	"campaignpulse/internal/session"
	"campaignpulse/internal/validation"
	"campaignpulse/pkg/contracts"
	"campaignpulse/pkg/contracts/domain"
)

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type options struct {
	schema           string
	influencers      stringList
	brands           stringList
	platforms        stringList
	influencerSearch string
	brandSearch      string
	from             string
	to               string
	top              int
	leaderboard      int
	csvOut           string
	xlsxOut          string
	templateOut      string
	logLevel         string
	version          bool
	files            []string
}

// report is the JSON document printed to stdout.
type report struct {
	Files      []string              `json:"files"`
	Rows       int                   `json:"rows"`
	FileErrors []services.FileError  `json:"file_errors"`
	Coercion   domain.CoercionReport `json:"coercion"`
	Filter     domain.FilterSpec     `json:"filter"`
	Summary    domain.Summary        `json:"summary"`
	Rankings   domain.Rankings       `json:"rankings"`
	Groups     domain.Groups         `json:"groups"`
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	if opts.version {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	logger := infrastructure.NewLoggerWithWriter(os.Stderr, opts.logLevel, false)
	if err := run(context.Background(), opts, os.Stdout, logger); err != nil {
		logger.Error("Report failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("campaign-report", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: campaign-report [flags] file.csv|file.xlsx ...\n\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.schema, "schema", "basic", fmt.Sprintf("column schema (%s)", strings.Join(dataprocessing.SchemaNames(), ", ")))
	fs.Var(&opts.influencers, "influencer", "include only this influencer (repeatable)")
	fs.Var(&opts.brands, "brand", "include only this brand (repeatable)")
	fs.Var(&opts.platforms, "platform", "include only this platform (repeatable)")
	fs.StringVar(&opts.influencerSearch, "search-influencer", "", "case-insensitive influencer substring; overrides -influencer")
	fs.StringVar(&opts.brandSearch, "search-brand", "", "case-insensitive brand substring; overrides -brand")
	fs.StringVar(&opts.from, "from", "", "first day of the date range (YYYY-MM-DD)")
	fs.StringVar(&opts.to, "to", "", "last day of the date range (YYYY-MM-DD)")
	fs.IntVar(&opts.top, "top", 3, "number of records in the ROI and ROAS rankings")
	fs.IntVar(&opts.leaderboard, "leaderboard", 5, "number of influencers in the top and bottom groups")
	fs.StringVar(&opts.csvOut, "csv", "", "write the filtered rows to this CSV file")
	fs.StringVar(&opts.xlsxOut, "xlsx", "", "write the filtered rows to this Excel file")
	fs.StringVar(&opts.templateOut, "template", "", "write a blank upload template to this Excel file")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.files = fs.Args()

	if (opts.from == "") != (opts.to == "") {
		fmt.Fprintln(output, "-from and -to must be given together")
		return nil, errors.New("incomplete date range")
	}
	return opts, nil
}

func (o *options) filterRequest() validation.FilterRequest {
	req := validation.FilterRequest{
		Influencers:      o.influencers,
		Brands:           o.brands,
		Platforms:        o.platforms,
		InfluencerSearch: o.influencerSearch,
		BrandSearch:      o.brandSearch,
	}
	if o.from != "" {
		req.DateRange = &validation.DateRangeRequest{Start: o.from, End: o.to}
	}
	return req
}

func run(ctx context.Context, opts *options, stdout io.Writer, logger *slog.Logger) error {
	ctx = infrastructure.EnsureTraceID(ctx)
	logger = infrastructure.WithComponent(logger, "campaign_report")

	schema, err := dataprocessing.SchemaByName(opts.schema)
	if err != nil {
		return err
	}

	excel := exporter.NewExcelWriter(logger)
	if opts.templateOut != "" {
		if err := excel.WriteTemplateFile(opts.templateOut); err != nil {
			return fmt.Errorf("write template: %w", err)
		}
		logger.InfoContext(ctx, "Template written", slog.String("file", opts.templateOut))
		if len(opts.files) == 0 {
			return nil
		}
	}

	if len(opts.files) == 0 {
		return dataprocessing.ErrNoFilesUploaded
	}

	spec, err := validation.NewValidator().Filter(opts.filterRequest())
	if err != nil {
		return err
	}

	fv := validation.NewFileValidator(logger)
	uploads, err := readFiles(fv, opts.files)
	if err != nil {
		return err
	}

	store := session.NewStore(logger, 0)
	defer store.Close()

	svc, err := services.NewDashboardService(
		store,
		dataprocessing.NewIngester(logger, dataprocessing.IngestLimits{MaxFiles: len(uploads)}),
		dataprocessing.NewAnalyzer(logger, dataprocessing.AnalyzerConfig{TopN: opts.top, LeaderboardN: opts.leaderboard}),
		exporter.NewCSVWriter(logger, true),
		excel,
		schema,
		logger,
	)
	if err != nil {
		return err
	}

	sess := svc.CreateSession(ctx)
	result, err := svc.Upload(ctx, sess.SessionID, services.UploadReplace, uploads)
	if err != nil {
		return err
	}

	view, err := svc.Dashboard(ctx, sess.SessionID, spec)
	if err != nil {
		return err
	}

	exports := []struct {
		path   string
		format services.ExportFormat
	}{
		{opts.csvOut, services.ExportCSV},
		{opts.xlsxOut, services.ExportXLSX},
	}
	for _, e := range exports {
		if e.path == "" {
			continue
		}
		if err := fv.ValidateOutputDirectory(filepath.Dir(e.path)); err != nil {
			return err
		}
		if err := exportFile(ctx, svc, sess.SessionID, spec, e.format, e.path); err != nil {
			return err
		}
		logger.InfoContext(ctx, "Export written",
			slog.String("file", e.path),
			slog.String("format", string(e.format)))
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report{
		Files:      result.FilesLoaded,
		Rows:       result.Rows,
		FileErrors: result.FileErrors,
		Coercion:   result.Coercion,
		Filter:     view.Filter,
		Summary:    view.Summary,
		Rankings:   view.Rankings,
		Groups:     view.Groups,
	})
}

func readFiles(fv *validation.FileValidator, paths []string) ([]domain.UploadedFile, error) {
	files := make([]domain.UploadedFile, 0, len(paths))
	for _, path := range paths {
		if err := fv.ValidateSpreadsheet(path); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		files = append(files, domain.UploadedFile{Name: filepath.Base(path), Data: data})
	}
	return files, nil
}

func exportFile(ctx context.Context, svc *services.DashboardService, sessionID string, spec domain.FilterSpec, format services.ExportFormat, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := svc.Export(ctx, sessionID, spec, format, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
