// Package http implements the HTTP handlers of the campaign dashboard.
// Handlers stay thin: they parse and validate requests, call the service
// layer and render the result.
//
// # Routes
//
// Mounted under /api by the application router:
//
//	POST   /sessions                     start a session
//	GET    /sessions/{id}                session metadata
//	DELETE /sessions/{id}                end a session
//	POST   /sessions/{id}/uploads        multipart "files", ?mode=replace|append
//	POST   /sessions/{id}/dashboard      JSON filter -> dashboard view
//	POST   /sessions/{id}/export.csv     JSON filter -> CSV download
//	POST   /sessions/{id}/export.xlsx    JSON filter -> xlsx download
//	GET    /template.xlsx                upload template
//	GET    /health, /health/ready, /health/live, /version
//
// # Error Handling
//
// Service errors are mapped to RFC 7807 problem documents. A rejected
// upload carries its per-file failures in the file_errors member:
//
//	{
//	    "type": "/errors/data/missing-columns",
//	    "title": "Unprocessable Entity",
//	    "status": 422,
//	    "detail": "Uploaded data is missing required columns for the basic schema",
//	    "missing": ["Revenue"],
//	    "file_errors": []
//	}
package http
