package profiler

import (
	"log/slog"
	"time"
)

// ProfilerBuilderOption is a functional option applied to a Profiler during NewProfiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often statistics are reported. Non-positive values are ignored.
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// WithLogger sets the logger statistics are written to.
func WithLogger(l *slog.Logger) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.logger = l
	}
}

// WithMemoryStats toggles runtime.ReadMemStats sampling, which briefly stops the world.
func WithMemoryStats(enabled bool) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.readMemory = enabled
	}
}
