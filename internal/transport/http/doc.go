// Package http implements the HTTP handlers of the analysis service. Handlers
// only parse requests and format responses; the work happens in
// internal/services.
//
// # Endpoints
//
//	POST /api/analysis               multipart "file" → JSON analysis result
//	POST /api/analysis/segments.csv  multipart "file" → customer_segments.csv
//	GET  /api/health                 liveness summary
//	GET  /api/health/ready           readiness, 503 until every check passes
//	GET  /api/health/live            runtime details
//	GET  /api/version                build information
//	GET  /metrics                    Prometheus exposition
//
// The analysis endpoint accepts two optional query parameters, preview and
// rules, that shrink the previews and the rule list below their configured
// sizes.
//
// # Errors
//
// Every failure is written through errors.ErrorHandler as RFC 7807 problem
// details. Bad file content (missing columns, unparsable dates or numbers)
// is a 422, a rejected upload a 400, an oversized upload a 413 and a run
// that exceeds the analysis timeout a 504.
package http
