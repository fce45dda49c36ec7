package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"
)

// HealthService provides health check functionality
type HealthService struct {
	build     BuildInfo
	checks    []ReadinessCheck
	startTime time.Time
	logger    *slog.Logger
}

// BuildInfo is stamped into the binaries with -ldflags.
type BuildInfo struct {
	Version   string
	BuildTime string
	Commit    string
}

// ReadinessCheck is one dependency the service needs before taking uploads.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service
func NewHealthService(build BuildInfo, logger *slog.Logger, checks ...ReadinessCheck) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", build.Version),
		slog.String("build_time", build.BuildTime),
		slog.Int("readiness_checks", len(checks)))

	return &HealthService{
		build:     build,
		checks:    checks,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.build.Version,
	}
}

// ReadinessCheck runs every registered check. Ready reports whether all passed.
func (hs *HealthService) ReadinessCheck(ctx context.Context) (status HealthStatus, ready bool) {
	status = HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.build.Version,
		Services:  make(map[string]ServiceHealth, len(hs.checks)),
	}

	ready = true
	for _, c := range hs.checks {
		if err := c.Check(ctx); err != nil {
			ready = false
			status.Services[c.Name] = ServiceHealth{Status: "not_ready", Message: err.Error()}
			hs.logger.WarnContext(ctx, "Readiness check failed",
				slog.String("check", c.Name),
				slog.String("error", err.Error()))
			continue
		}
		status.Services[c.Name] = ServiceHealth{Status: "ready"}
	}

	if !ready {
		status.Status = "not_ready"
	}
	return status, ready
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.build.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.build.Version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}

	if hs.build.BuildTime != "" {
		result["build_time"] = hs.build.BuildTime
	}
	if hs.build.Commit != "" {
		result["commit"] = hs.build.Commit
	}

	return result
}

// TempDirCheck verifies the temp directory is writable. Large workbooks are
// spooled there while excelize unpacks them.
func TempDirCheck() ReadinessCheck {
	return ReadinessCheck{
		Name: "temp_dir",
		Check: func(ctx context.Context) error {
			f, err := os.CreateTemp("", "rfmbasket-ready-*")
			if err != nil {
				return fmt.Errorf("%w: temp dir not writable: %v", ErrServiceUnavailable, err)
			}
			name := f.Name()
			f.Close()
			return os.Remove(name)
		},
	}
}
