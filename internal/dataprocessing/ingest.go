package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"campaignpulse/pkg/contracts/domain"
)

// ErrTooManyFiles is returned when an upload carries more files than allowed.
var ErrTooManyFiles = errors.New("too many files in one upload")

// IngestLimits bounds a single upload. Zero values disable a limit.
type IngestLimits struct {
	MaxFiles     int
	MaxFileBytes int64
	Workers      int // files parsed concurrently; 0 means one per file
}

// IngestResult is the merged table plus the files that were skipped.
type IngestResult struct {
	Table       *domain.Table
	FilesLoaded []string
	FileErrors  []*FileParseError
}

// Ingester reads uploaded spreadsheets and concatenates them into one table.
type Ingester struct {
	logger *slog.Logger
	limits IngestLimits
}

// NewIngester creates an ingester.
func NewIngester(logger *slog.Logger, limits IngestLimits) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		logger: logger.With(slog.String("component", "ingester")),
		limits: limits,
	}
}

// Ingest parses the files concurrently and concatenates the successful ones
// in upload order. A file that fails to parse is recorded and skipped. The
// result is returned alongside ErrNoValidData when every file failed, so
// callers can still report the per-file causes.
func (i *Ingester) Ingest(ctx context.Context, files []domain.UploadedFile) (*IngestResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFilesUploaded
	}
	if i.limits.MaxFiles > 0 && len(files) > i.limits.MaxFiles {
		return nil, fmt.Errorf("%w: %d files, limit %d", ErrTooManyFiles, len(files), i.limits.MaxFiles)
	}

	tables, errs, err := i.parseAll(ctx, files)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{Table: &domain.Table{}}

	for idx, file := range files {
		table, err := tables[idx], errs[idx]
		if err != nil {
			i.logger.WarnContext(ctx, "Skipping unreadable file",
				slog.String("file", file.Name),
				slog.String("error", err.Error()))
			result.FileErrors = append(result.FileErrors, &FileParseError{FileName: file.Name, Cause: err})
			continue
		}

		result.Table.Append(table)
		result.FilesLoaded = append(result.FilesLoaded, file.Name)

		i.logger.DebugContext(ctx, "Parsed file",
			slog.String("file", file.Name),
			slog.Int("rows", table.Len()),
			slog.Int("columns", len(table.Columns)))
	}

	if len(result.FilesLoaded) == 0 {
		return result, ErrNoValidData
	}

	i.logger.InfoContext(ctx, "Ingestion complete",
		slog.Int("files", len(files)),
		slog.Int("loaded", len(result.FilesLoaded)),
		slog.Int("failed", len(result.FileErrors)),
		slog.Int("rows", result.Table.Len()))

	return result, nil
}

// parseAll parses every file, keeping results at their upload index. Only
// cancellation of ctx fails the whole call.
func (i *Ingester) parseAll(ctx context.Context, files []domain.UploadedFile) ([]*domain.Table, []error, error) {
	tables := make([]*domain.Table, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	if i.limits.Workers > 0 {
		g.SetLimit(i.limits.Workers)
	}

	for idx, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tables[idx], errs[idx] = i.parse(file)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return tables, errs, nil
}

func (i *Ingester) parse(file domain.UploadedFile) (*domain.Table, error) {
	if i.limits.MaxFileBytes > 0 && int64(len(file.Data)) > i.limits.MaxFileBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, len(file.Data), i.limits.MaxFileBytes)
	}
	return ParseFile(file)
}
