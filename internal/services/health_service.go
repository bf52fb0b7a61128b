package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"incomestatement/internal/infrastructure"
	"incomestatement/pkg/contracts"
)

// SessionCounter reports open live recompute sessions
type SessionCounter interface {
	SessionCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	store     *DatasetStore
	runtime   *infrastructure.RuntimeMetrics
	sessions  SessionCounter
	sheets    bool
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a health service. runtime and sessions may be nil.
func NewHealthService(store *DatasetStore, runtime *infrastructure.RuntimeMetrics, sessions SessionCounter, sheetsEnabled bool, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", contracts.Version),
		slog.Bool("sheets_enabled", sheetsEnabled))

	return &HealthService{
		version:   contracts.Version,
		store:     store,
		runtime:   runtime,
		sessions:  sessions,
		sheets:    sheetsEnabled,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"datasets":  hs.checkDatasetHealth(),
			"websocket": hs.checkWebSocketHealth(),
			"sheets":    hs.checkSheetsHealth(),
		},
	}

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status == "not_ready" {
			status.Status = "not_ready"
			break
		}
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime": time.Since(hs.startTime).Seconds(),
		},
	}

	if hs.runtime != nil {
		stats := hs.runtime.Snapshot()
		status.Runtime["goroutines"] = stats.Goroutines
		status.Runtime["heap_alloc_bytes"] = stats.HeapAllocBytes
		status.Runtime["num_gc"] = stats.NumGC
	}

	return status
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":      info.Version,
		"api_version":  info.APIVersion,
		"build_time":   info.BuildTime,
		"git_commit":   info.GitCommit,
		"go_version":   info.GoVersion,
		"os":           info.OS,
		"arch":         info.Architecture,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

func (hs *HealthService) checkDatasetHealth() ServiceHealth {
	if hs.store == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "dataset store not initialized",
		}
	}

	msg := fmt.Sprintf("%d datasets held", hs.store.Len())
	if c := hs.store.Capacity(); c > 0 {
		msg = fmt.Sprintf("%d of %d datasets held", hs.store.Len(), c)
	}
	return ServiceHealth{
		Status:  "ready",
		Message: msg,
		Uptime:  time.Since(hs.startTime).String(),
	}
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.sessions == nil {
		return ServiceHealth{Status: "disabled"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d live sessions", hs.sessions.SessionCount()),
	}
}

func (hs *HealthService) checkSheetsHealth() ServiceHealth {
	if !hs.sheets {
		return ServiceHealth{Status: "disabled", Message: "google sheets import is not configured"}
	}
	return ServiceHealth{Status: "ready"}
}
