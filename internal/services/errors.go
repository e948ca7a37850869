package services

import (
	"errors"

	"campaignpulse/internal/dataprocessing"
)

// Dashboard service errors
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrNoDataset         = errors.New("no campaign data loaded for this session")
	ErrInvalidUploadMode = errors.New("invalid upload mode")
)

// FileError is the wire form of one skipped upload.
type FileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

func fileErrors(errs []*dataprocessing.FileParseError) []FileError {
	out := make([]FileError, 0, len(errs))
	for _, e := range errs {
		out = append(out, FileError{File: e.FileName, Error: e.Message()})
	}
	return out
}

// UploadError carries the per-file failures of an upload that produced no
// dataset, alongside the reason it failed.
type UploadError struct {
	Err        error
	FileErrors []FileError
}

func (e *UploadError) Error() string {
	return e.Err.Error()
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
