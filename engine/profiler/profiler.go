package profiler

import (
	"log"
	"runtime"
	"time"
)

// Profiler tracks frame rate, frame time, fence wait and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	lastFrame      time.Time
	updateInterval time.Duration
	frameTime      time.Duration
	maxFrameTime   time.Duration
	fenceWait      time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	logger         *log.Logger
	now            func() time.Time
}

// ProfilerOption is a functional option applied to a Profiler during construction via NewProfiler.
type ProfilerOption func(*Profiler)

// WithInterval sets how often stats are logged.
//
// Parameters:
//   - d: the interval, ignored when not positive
//
// Returns:
//   - ProfilerOption: a function that applies the interval option to a Profiler
func WithInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithLogger sets the logger stats are written to.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - ProfilerOption: a function that applies the logger option to a Profiler
func WithLogger(l *log.Logger) ProfilerOption {
	return func(p *Profiler) {
		if l != nil {
			p.logger = l
		}
	}
}

func withClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// NewProfiler creates a new Profiler. Update interval defaults to 1 second.
//
// Parameters:
//   - options: variadic list of ProfilerOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		logger:         log.Default(),
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	p.lastFrame = p.lastTime
	return p
}

// Stats is one logged interval.
type Stats struct {
	FPS           float64
	AvgFrameTime  time.Duration
	MaxFrameTime  time.Duration
	AvgFenceWait  time.Duration
	HeapMB        float64
	AllocRateMBps float64
	GCCount       uint32
	LastGCPauseUs uint64
	MaxGCPauseUs  uint64
	SysMB         float64
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
//
// Parameters:
//   - fenceWait: how long the frame blocked on its slot's fence
//
// Returns:
//   - *Stats: the logged stats, nil when nothing was logged this tick
func (p *Profiler) Tick(fenceWait time.Duration) *Stats {
	currentTime := p.now()
	frameTime := currentTime.Sub(p.lastFrame)
	p.lastFrame = currentTime

	p.frameCount++
	p.frameTime += frameTime
	p.fenceWait += fenceWait
	p.maxFrameTime = max(p.maxFrameTime, frameTime)

	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return nil
	}

	s := &Stats{
		FPS:          float64(p.frameCount) / elapsed.Seconds(),
		AvgFrameTime: p.frameTime / time.Duration(p.frameCount),
		MaxFrameTime: p.maxFrameTime,
		AvgFenceWait: p.fenceWait / time.Duration(p.frameCount),
	}

	runtime.ReadMemStats(&p.memStats)
	s.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	s.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	s.AllocRateMBps = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	s.GCCount = p.memStats.NumGC
	if s.GCCount > 0 {
		// PauseNs is a circular buffer of last 256 GC pauses
		s.LastGCPauseUs = p.memStats.PauseNs[(s.GCCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if s.GCCount-startIdx > 256 {
			startIdx = s.GCCount - 256
		}
		for i := startIdx; i < s.GCCount; i++ {
			s.MaxGCPauseUs = max(s.MaxGCPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.logger.Printf("[Profiler] FPS: %.2f | Frame: %.2f ms (max %.2f ms) | Fence wait: %.2f ms | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		s.FPS, ms(s.AvgFrameTime), ms(s.MaxFrameTime), ms(s.AvgFenceWait), s.HeapMB, s.AllocRateMBps,
		s.GCCount, s.LastGCPauseUs, s.MaxGCPauseUs, s.SysMB)

	p.frameCount = 0
	p.frameTime = 0
	p.maxFrameTime = 0
	p.fenceWait = 0
	p.lastTime = currentTime
	p.lastGCCount = s.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return s
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
