package contour

import (
	"runtime"

	"go.uber.org/zap"
)

// MemState classifies heap pressure.
type MemState int

const (
	StateNominal MemState = iota
	StateWarning
	StateCritical
	StateExtreme
)

func (s MemState) String() string {
	switch s {
	case StateNominal:
		return "nominal"
	case StateWarning:
		return "warning"
	case StateCritical:
		return "critical"
	case StateExtreme:
		return "extreme"
	}
	return "unknown"
}

// Memory thresholds in MB. The hard ceiling is the point past which
// only the most aggressive downsampling is attempted.
const (
	memWarningMB  = 2048
	memCriticalMB = 4096
	memCeilingMB  = 8192
)

// Governor watches heap usage during extraction and decides when and
// how hard to downsample the working raster. The sampler is
// injectable so tests can drive the state machine deterministically.
type Governor struct {
	sample     func() uint64
	log        *zap.Logger
	lastFactor int
	Events     int
}

// NewGovernor returns a governor reading live heap usage.
func NewGovernor(log *zap.Logger) *Governor {
	return &Governor{sample: heapAllocMB, log: log}
}

// NewGovernorWithSampler returns a governor driven by a custom memory
// reading, in MB.
func NewGovernorWithSampler(sample func() uint64, log *zap.Logger) *Governor {
	return &Governor{sample: sample, log: log}
}

func heapAllocMB() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc / (1 << 20)
}

// State classifies the current reading.
func (g *Governor) State() MemState {
	return g.stateFor(g.sample())
}

// Check returns the downsample factor to apply before the next mask
// build, or 1 when extraction may proceed at the current resolution.
// It returns ErrMemoryExhausted when pressure stays critical after a
// maximum-factor pass has already been taken.
func (g *Governor) Check() (int, error) {
	used := g.sample()
	state := g.stateFor(used)
	if state < StateCritical {
		if state == StateWarning && g.log != nil {
			g.log.Warn("memory pressure elevated", zap.Uint64("heap_mb", used))
		}
		return 1, nil
	}

	if g.lastFactor >= 8 {
		if g.log != nil {
			g.log.Error("memory still critical after maximum downsampling",
				zap.Uint64("heap_mb", used))
		}
		return 0, ErrMemoryExhausted
	}

	ratio := float64(used) / float64(memCeilingMB)
	factor := 2
	switch {
	case ratio > 0.95:
		factor = 8
	case ratio > 0.85:
		factor = 4
	}
	g.lastFactor = factor
	g.Events++
	if g.log != nil {
		g.log.Warn("memory critical, downsampling",
			zap.Uint64("heap_mb", used),
			zap.String("state", state.String()),
			zap.Int("factor", factor))
	}
	return factor, nil
}

func (g *Governor) stateFor(used uint64) MemState {
	switch {
	case used >= memCeilingMB:
		return StateExtreme
	case used >= memCriticalMB:
		return StateCritical
	case used >= memWarningMB:
		return StateWarning
	}
	return StateNominal
}
