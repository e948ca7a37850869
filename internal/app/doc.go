// Package app wires the campaign dashboard server together: configuration,
// logging, telemetry, the session store, the dashboard pipeline and the HTTP
// router.
//
// # Initialization Flow
//
//  1. Load configuration from defaults, an optional YAML file and the environment
//  2. Initialize logging and OpenTelemetry
//  3. Build the session store, ingester, analyzer and exporters
//  4. Initialize services with their dependencies
//  5. Set up HTTP handlers and middleware
//  6. Create the HTTP server
//
// # Usage
//
//	app, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return app.Run()
//
// # Graceful Shutdown
//
// Run blocks until SIGINT or SIGTERM, then drains in-flight requests, stops
// the session janitor and flushes telemetry. Errors are returned to the
// caller; the package never calls os.Exit.
package app
