// Package services implements the business logic layer of Campaign Pulse.
// It sits between the HTTP handlers and the data pipeline so that the
// pipeline stays free of session and transport concerns.
//
// # Services
//
//   - DashboardService: sessions, uploads, dashboard views, exports
//   - HealthService: health, readiness, liveness and version reports
//
// # Pipeline
//
// An upload flows through ingestion, validation, filtering and aggregation:
//
//	result, err := svc.Upload(ctx, sessionID, services.UploadAppend, files)
//	view, err := svc.Dashboard(ctx, sessionID, spec)
//	err = svc.Export(ctx, sessionID, spec, services.ExportCSV, w)
//
// Every dashboard call recomputes its view from the session's dataset; no
// result is cached between calls.
//
// # Error Handling
//
// Services return sentinel errors that handlers translate to problem
// responses:
//
//   - ErrSessionNotFound for unknown or expired sessions
//   - ErrNoDataset when a view is requested before any upload
//   - *UploadError wrapping dataprocessing.ErrNoValidData or a
//     *dataprocessing.MissingColumnsError, with the per-file failures
package services
