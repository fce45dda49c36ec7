// Package app wires configuration, logging, telemetry, the analysis
// pipeline and the HTTP layer into a runnable server.
//
// # Initialization Flow
//
//	1. Load configuration from the YAML file and RFM_* environment variables
//	2. Initialize the slog logger and OpenTelemetry providers
//	3. Build the processor, file validator and CSV writer
//	4. Create the analysis and health services
//	5. Register middleware and routes on a chi router
//	6. Configure the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// Run blocks until SIGINT or SIGTERM, then drains in-flight requests and
// flushes telemetry. Initialization errors are returned, never passed to
// os.Exit, so main controls the exit code.
package app
