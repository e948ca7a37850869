// Package dataprocessing implements the campaign data pipeline: reading
// uploaded spreadsheets, validating the merged table against a column schema,
// and filtering and aggregating the typed dataset.
//
// # Pipeline
//
//	[]UploadedFile → Ingester.Ingest → Table → Validate → CampaignDataset
//	CampaignDataset + FilterSpec → Filter → view → Analyzer → DashboardView
//
// Data flows one way. Nothing in the package keeps state between calls: the
// same dataset and filter always produce the same view and metrics.
//
// # Errors
//
// A file that cannot be parsed yields a *FileParseError and is skipped.
// ErrNoFilesUploaded and ErrNoValidData distinguish an empty upload from one
// where every file failed. A merged table lacking required headers yields a
// *MissingColumnsError naming all of them, and no dataset is produced.
//
// Ratios with a zero denominator are domain.Ratio values that are not
// available; they are never Inf or NaN.
package dataprocessing
