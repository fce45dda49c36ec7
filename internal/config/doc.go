// Package config provides centralized configuration management.
// It loads configuration from the environment and an optional YAML file,
// validates it, and exposes the fixed analysis constants.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (config.yaml, configs/config.yaml or RFM_CONFIG_FILE)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables use the RFM_ prefix followed by the section:
//
//	RFM_SERVER_PORT=8080
//	RFM_SERVER_ANALYSIS_TIMEOUT=90s
//	RFM_LOGGING_LEVEL=debug
//	RFM_ANALYSIS_TOP_RULES=10
//	RFM_TELEMETRY_ENABLE_TRACING=true
//
// # Fixed Thresholds
//
// Minimum support (0.02), minimum lift (1.0) and the cluster count (4) are
// compile-time constants. They are not read from any source.
package config
