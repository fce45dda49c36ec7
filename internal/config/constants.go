package config

// Application constants
const (
	// Application Info
	AppName    = "RFM Basket"
	AppVersion = "1.0.0"

	// Segmentation. ClusterCount doubles as the minimum number of customers
	// needed before clustering runs.
	ClusterCount      = 4
	ClusterSeed int64 = 42
	PCAComponents     = 2
	KMeansMaxIter     = 300
	KMeansTolerance   = 1e-4

	// Market basket analysis
	MinSupport = 0.02
	MinLift    = 1.0

	// Presentation defaults
	DefaultPreviewRows          = 5
	DefaultTopRules             = 10
	DefaultMaxUploadBytes int64 = 50 << 20 // 50MB

	// Export
	SegmentsFileName = "customer_segments.csv"

	// Endpoints
	APIBasePath      = "/api"
	AnalysisEndpoint = "/api/analysis"
	HealthEndpoint   = "/api/health"
	MetricsEndpoint  = "/metrics"
)

// AllowedUploadExtensions lists the file types the ingestion stage can read.
var AllowedUploadExtensions = []string{".xlsx", ".csv"}
