package profiler

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// Stats is one reporting interval's worth of frame and memory statistics.
type Stats struct {
	FPS float64
	// HeapMB is live heap memory.
	HeapMB float64
	// AllocRateMB is heap allocation churn per second over the interval.
	AllocRateMB float64
	// GCCount is the total number of completed collections.
	GCCount uint32
	// MaxPause is the longest GC pause seen during the interval.
	MaxPause time.Duration
	// SysMB is the memory obtained from the OS.
	SysMB float64
}

// Profiler counts frames and reports the frame rate once per interval.
type Profiler struct {
	now            func() time.Time
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	readMemory     bool
	logger         *slog.Logger

	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		now:            time.Now,
		updateInterval: time.Second,
		readMemory:     true,
		logger:         slog.Default(),
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per presented frame.
//
// Returns:
//   - float64: the frame rate over the interval that just ended
//   - bool: true once per interval, when the returned rate is fresh and has been logged
func (p *Profiler) Tick() (float64, bool) {
	p.frameCount++
	current := p.now()
	elapsed := current.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return p.last.FPS, false
	}

	stats := Stats{FPS: float64(p.frameCount) / elapsed.Seconds()}
	if p.readMemory {
		p.sampleMemory(&stats, elapsed)
	}
	p.logger.Info("frame stats",
		"fps", fmt.Sprintf("%.1f", stats.FPS),
		"heap_mb", fmt.Sprintf("%.2f", stats.HeapMB),
		"alloc_mb_s", fmt.Sprintf("%.2f", stats.AllocRateMB),
		"gc", stats.GCCount,
		"max_pause", stats.MaxPause,
		"sys_mb", fmt.Sprintf("%.2f", stats.SysMB))

	p.frameCount = 0
	p.lastTime = current
	p.last = stats
	return stats.FPS, true
}

// Last returns the statistics of the most recently completed interval.
func (p *Profiler) Last() Stats {
	return p.last
}

func (p *Profiler) sampleMemory(stats *Stats, elapsed time.Duration) {
	runtime.ReadMemStats(&p.memStats)
	m := &p.memStats

	stats.HeapMB = float64(m.Alloc) / 1024 / 1024
	stats.SysMB = float64(m.Sys) / 1024 / 1024
	stats.AllocRateMB = float64(m.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()
	stats.GCCount = m.NumGC

	// PauseNs is a circular buffer of the last 256 pauses.
	start := p.lastGCCount
	if m.NumGC-start > 256 {
		start = m.NumGC - 256
	}
	for i := start; i < m.NumGC; i++ {
		if d := time.Duration(m.PauseNs[i%256]); d > stats.MaxPause {
			stats.MaxPause = d
		}
	}

	p.lastGCCount = m.NumGC
	p.lastTotalAlloc = m.TotalAlloc
}

// Title formats a window title carrying the frame rate.
func Title(base string, fps float64) string {
	return fmt.Sprintf("%s | %.0f fps", base, fps)
}
