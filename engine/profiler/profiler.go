// Package profiler reports frame rate, accumulated sample count and memory statistics.
package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/engine/logger"
)

var log = logger.New("profiler")

// Stats is one reporting interval.
type Stats struct {
	FPS float64
	// Samples is the accumulation timestep at the end of the interval: the number of frames
	// averaged into the image on screen.
	Samples     uint32
	HeapMB      float64
	AllocRateMB float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
	SysMB       float64
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	now            func() time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// ProfilerOption configures a Profiler.
type ProfilerOption func(*Profiler)

// WithInterval sets the reporting interval. Non-positive values keep the 1 second default.
func WithInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics at Info when the update interval has elapsed.
//
// Parameters:
//   - samples: the accumulation timestep of the frame just submitted
//
// Returns:
//   - Stats: the interval's statistics, zero unless reported
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(samples uint32) (Stats, bool) {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return Stats{}, false
	}

	runtime.ReadMemStats(&p.memStats)
	st := Stats{
		FPS:     float64(p.frameCount) / elapsed.Seconds(),
		Samples: samples,
		// Alloc is live heap; Sys is the process footprint obtained from the OS.
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:       float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:     p.memStats.NumGC,
	}

	if gcCount := st.GCCount; gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses.
		st.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			st.MaxPauseUs = max(st.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	log.Infof("FPS: %.2f | Samples: %d | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		st.FPS, st.Samples, st.HeapMB, st.AllocRateMB, st.GCCount, st.LastPauseUs, st.MaxPauseUs, st.SysMB)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = st.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return st, true
}
