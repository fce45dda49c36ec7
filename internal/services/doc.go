// Package services implements the business logic layer between the HTTP
// handlers and the analysis pipeline.
//
// # Available Services
//
//   - AnalysisService: validates an upload, runs the pipeline under the
//     configured timeout and renders the customer segments export
//   - HealthService: liveness, readiness and version information
//
// # Error Handling
//
// Services return the pipeline's typed errors unchanged (wrapped with %w) so
// the transport layer can map them to problem details:
//
//   - validation.ErrInvalidUpload and validation.ErrFileTooLarge for uploads
//     rejected before parsing
//   - dataprocessing.MissingColumnsError, DateParseError and ParseError for
//     bad file content
//   - ErrAnalysisTimeout together with context.DeadlineExceeded for runs that
//     took too long
package services
