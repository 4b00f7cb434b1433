package runtime

import (
	"runtime"
	"runtime/metrics"
	"sync"
	"time"
)

const (
	metricCPUSeconds = "/sched/cpu:seconds"
	metricHeapBytes  = "/memory/classes/heap/objects:bytes"
	metricGoroutines = "/sched/goroutines:goroutines"
)

// resourceTracker samples process CPU, heap and goroutine figures for the
// handler stats. Reading runtime/metrics does not stop the world.
type resourceTracker struct {
	mu       sync.Mutex
	samples  []metrics.Sample
	lastCPU  float64
	lastWall time.Time
	numCPU   float64
}

func newResourceTracker() *resourceTracker {
	return &resourceTracker{
		samples: []metrics.Sample{
			{Name: metricCPUSeconds},
			{Name: metricHeapBytes},
			{Name: metricGoroutines},
		},
		numCPU: float64(runtime.NumCPU()),
	}
}

// Snapshot reads the current figures. CPUPercent is averaged over the time
// since the previous snapshot and is zero on the first call.
func (r *resourceTracker) Snapshot() ResourceUsage {
	if r == nil {
		return ResourceUsage{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	metrics.Read(r.samples)
	now := time.Now()

	var usage ResourceUsage
	for _, s := range r.samples {
		switch s.Name {
		case metricCPUSeconds:
			if s.Value.Kind() != metrics.KindFloat64 {
				continue
			}
			cpu := s.Value.Float64()
			if !r.lastWall.IsZero() && r.numCPU > 0 {
				if wall := now.Sub(r.lastWall).Seconds(); wall > 0 {
					usage.CPUPercent = (cpu - r.lastCPU) / wall / r.numCPU * 100
				}
			}
			r.lastCPU = cpu
		case metricHeapBytes:
			if s.Value.Kind() == metrics.KindUint64 {
				usage.MemoryBytes = s.Value.Uint64()
			}
		case metricGoroutines:
			if s.Value.Kind() == metrics.KindUint64 {
				usage.Goroutines = int(s.Value.Uint64())
			}
		}
	}
	if usage.Goroutines == 0 {
		usage.Goroutines = runtime.NumGoroutine()
	}
	r.lastWall = now
	return usage
}
