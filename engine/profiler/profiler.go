package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-meshlet/engine/logger"
	"go.uber.org/zap"
)

// Sample is one interval's worth of frame, draw and memory statistics.
type Sample struct {
	FPS         float64
	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64

	// AvgCulledInstances is the mean number of instances the cull pass rejected per frame.
	AvgCulledInstances float64

	// AvgOpaqueMeshlets and AvgTransparentMeshlets are the mean number of visible meshlets
	// drawn per frame by each pass. Zero unless draw stats are recorded.
	AvgOpaqueMeshlets      float64
	AvgTransparentMeshlets float64
}

// Profiler tracks frame rate, draw statistics and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	drawFrames  int
	culled      uint64
	opaque      uint64
	transparent uint64

	now func() time.Time
	log *zap.Logger
}

// NewProfiler creates a new Profiler.
//
// Parameters:
//   - interval: how often stats are logged. Non-positive values default to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(interval time.Duration) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: interval,
		now:            time.Now,
		log:            logger.Named("profiler"),
	}
}

// RecordDraw adds one frame's draw counts read back from the GPU.
//
// Parameters:
//   - culled: the number of instances the cull pass rejected
//   - opaque: the number of visible opaque meshlets drawn
//   - transparent: the number of visible transparent meshlets drawn
func (p *Profiler) RecordDraw(culled, opaque, transparent uint32) {
	p.drawFrames++
	p.culled += uint64(culled)
	p.opaque += uint64(opaque)
	p.transparent += uint64(transparent)
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
//
// Returns:
//   - Sample: the statistics of the elapsed interval, zero when nothing was logged
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() (Sample, bool) {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return Sample{}, false
	}

	s := Sample{FPS: float64(p.frameCount) / elapsed.Seconds()}

	runtime.ReadMemStats(&p.memStats)
	// Alloc is live heap, TotalAlloc only grows and tracks churn, Sys is the process footprint.
	s.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	s.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	s.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	s.GCCount = p.memStats.NumGC
	if s.GCCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses
		s.LastPauseUs = p.memStats.PauseNs[(s.GCCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if s.GCCount-startIdx > 256 {
			startIdx = s.GCCount - 256
		}
		for i := startIdx; i < s.GCCount; i++ {
			s.MaxPauseUs = max(s.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	if p.drawFrames > 0 {
		n := float64(p.drawFrames)
		s.AvgCulledInstances = float64(p.culled) / n
		s.AvgOpaqueMeshlets = float64(p.opaque) / n
		s.AvgTransparentMeshlets = float64(p.transparent) / n
	}

	p.log.Info("frame stats",
		zap.Float64("fps", s.FPS),
		zap.Float64("heap_mb", s.HeapMB),
		zap.Float64("alloc_rate_mb_s", s.AllocRateMB),
		zap.Uint32("gc", s.GCCount),
		zap.Uint64("gc_last_pause_us", s.LastPauseUs),
		zap.Uint64("gc_max_pause_us", s.MaxPauseUs),
		zap.Float64("sys_mb", s.SysMB),
		zap.Float64("culled_instances", s.AvgCulledInstances),
		zap.Float64("opaque_meshlets", s.AvgOpaqueMeshlets),
		zap.Float64("transparent_meshlets", s.AvgTransparentMeshlets),
	)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = s.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.drawFrames, p.culled, p.opaque, p.transparent = 0, 0, 0, 0
	return s, true
}
