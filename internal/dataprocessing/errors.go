package dataprocessing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoFilesUploaded is returned when an ingestion call receives no files.
	ErrNoFilesUploaded = errors.New("no files uploaded")

	// ErrNoValidData is returned when files were given but none parsed.
	ErrNoValidData = errors.New("no valid data found in uploaded files")

	// ErrUnsupportedFormat marks a file whose extension is not a known spreadsheet type.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrFileTooLarge marks a file over the configured size limit.
	ErrFileTooLarge = errors.New("file exceeds size limit")

	// ErrEmptyFile marks a blob with no header row.
	ErrEmptyFile = errors.New("file has no header row")
)

// FileParseError reports one upload that could not be read as a table.
// It is recovered locally: the file is skipped and the batch continues.
type FileParseError struct {
	FileName string `json:"file_name"`
	Cause    error  `json:"-"`
}

func (e *FileParseError) Error() string {
	return fmt.Sprintf("error reading %s: %v", e.FileName, e.Cause)
}

func (e *FileParseError) Unwrap() error {
	return e.Cause
}

// Message returns the cause text for API responses.
func (e *FileParseError) Message() string {
	if e.Cause == nil {
		return ""
	}
	return e.Cause.Error()
}

// MissingColumnsError halts the pipeline for a merged upload that lacks
// required headers. Missing lists every absent header in required order.
type MissingColumnsError struct {
	Schema  string   `json:"schema"`
	Missing []string `json:"missing"`
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns for %s schema: %s", e.Schema, strings.Join(e.Missing, ", "))
}

// IsMissingColumns reports whether err is (or wraps) a MissingColumnsError.
func IsMissingColumns(err error) bool {
	var mce *MissingColumnsError
	return errors.As(err, &mce)
}
