package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeStats is a point-in-time snapshot of the process, reported by the health endpoint
type RuntimeStats struct {
	Goroutines     int     `json:"goroutines"`
	HeapAllocBytes uint64  `json:"heap_alloc_bytes"`
	SysBytes       uint64  `json:"sys_bytes"`
	NumGC          uint32  `json:"num_gc"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// RuntimeMetrics exposes Go runtime gauges through the meter and snapshots for health checks
type RuntimeMetrics struct {
	startTime    time.Time
	registration metric.Registration
}

// NewRuntimeMetrics registers observable gauges that are sampled on every collection
func NewRuntimeMetrics(meter metric.Meter, startTime time.Time) (*RuntimeMetrics, error) {
	goroutines, err := meter.Int64ObservableGauge("system_goroutines",
		metric.WithDescription("Number of active goroutines"))
	if err != nil {
		return nil, err
	}

	heap, err := meter.Int64ObservableGauge("system_memory_allocated_bytes",
		metric.WithDescription("Memory allocated by Go runtime in bytes"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}

	uptime, err := meter.Float64ObservableGauge("system_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	rm := &RuntimeMetrics{startTime: startTime}
	rm.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := rm.Snapshot()
		o.ObserveInt64(goroutines, int64(stats.Goroutines))
		o.ObserveInt64(heap, int64(stats.HeapAllocBytes))
		o.ObserveFloat64(uptime, stats.UptimeSeconds)
		return nil
	}, goroutines, heap, uptime)
	if err != nil {
		return nil, err
	}

	return rm, nil
}

// Snapshot reads the current runtime statistics
func (rm *RuntimeMetrics) Snapshot() RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return RuntimeStats{
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: mem.HeapAlloc,
		SysBytes:       mem.Sys,
		NumGC:          mem.NumGC,
		UptimeSeconds:  time.Since(rm.startTime).Seconds(),
	}
}

// Stop unregisters the gauge callback
func (rm *RuntimeMetrics) Stop() error {
	if rm.registration == nil {
		return nil
	}
	return rm.registration.Unregister()
}
