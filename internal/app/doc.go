// Package app wires the income statement server together and manages its
// lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration (.env, INCSTMT_* environment, optional YAML file)
//	2. Initialize the slog logger and OpenTelemetry providers
//	3. Create business and runtime metrics
//	4. Create the dataset store, table readers and StatementService
//	5. Optionally attach the Google Sheets source
//	6. Create the websocket hub and the health service
//	7. Build the chi router and the HTTP server
//
// # Routes
//
//	/api/health, /api/health/ready, /api/health/live, /api/version
//	/api/datasets/...   uploads, computations, exports
//	/ws?dataset=<id>    live recompute sessions
//	/metrics            Prometheus exposition when enabled
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// # Graceful Shutdown
//
// Run stops on SIGINT, SIGTERM or context cancellation. It then drains HTTP
// requests, closes websocket sessions and flushes telemetry within the
// configured shutdown timeout.
//
// Initialization errors are returned to the caller; the package never calls
// os.Exit.
package app
