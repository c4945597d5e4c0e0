package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"gradebook/internal/store"
)

// BackupState reports whether a snapshot is waiting to be written.
type BackupState interface {
	Pending() bool
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	repo      store.Reader
	backup    BackupState
	startTime time.Time
	logger    *slog.Logger
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

// NewHealthService creates a health service. backup may be nil when
// backups are disabled.
func NewHealthService(version, buildTime string, repo store.Reader, backup BackupState, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		buildTime: buildTime,
		repo:      repo,
		backup:    backup,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck probes the store with a short deadline.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"store":  hs.checkStore(ctx),
			"backup": hs.checkBackup(),
		},
	}

	for name, sh := range status.Services {
		if sh.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "Readiness check failed",
				slog.String("component", name),
				slog.String("message", sh.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
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
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     time.Since(hs.startTime).Seconds(),
		"start_time": hs.startTime.Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

func (hs *HealthService) checkStore(ctx context.Context) ServiceHealth {
	if hs.repo == nil {
		return ServiceHealth{Status: "not_ready", Message: "store not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	classes, err := hs.repo.ListClasses(ctx)
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("Store error: %v", err)}
	}
	return ServiceHealth{Status: "ready", Message: fmt.Sprintf("%d classes", len(classes))}
}

func (hs *HealthService) checkBackup() ServiceHealth {
	switch {
	case hs.backup == nil:
		return ServiceHealth{Status: "ready", Message: "Backups disabled"}
	case hs.backup.Pending():
		return ServiceHealth{Status: "ready", Message: "Snapshot pending"}
	default:
		return ServiceHealth{Status: "ready", Message: "Up to date"}
	}
}
