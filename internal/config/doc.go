// Package config loads the application configuration.
//
// # Configuration Sources
//
// Values are resolved in increasing order of precedence:
//
//  1. Defaults declared in struct tags
//  2. A YAML file (CAMPAIGN_CONFIG_FILE, or config.yaml / configs/config.yaml)
//  3. Environment variables
//
// # Environment Variables
//
// Variables are namespaced with CAMPAIGN_ and follow the struct nesting:
//
//	CAMPAIGN_SERVER_PORT=8080
//	CAMPAIGN_DASHBOARD_SCHEMA=extended
//	CAMPAIGN_DASHBOARD_SESSION_TTL=30m
//	CAMPAIGN_LOGGING_LEVEL=debug
//	CAMPAIGN_TELEMETRY_TRACE_EXPORTER=stdout
//
// Load validates the result and returns an error for out-of-range values
// rather than silently correcting them.
package config
