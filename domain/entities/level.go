package entities

import (
	"math"
	"sync/atomic"
)

// LevelMeter aggregates instantaneous RMS amplitudes into a 0-100 level
// with max-since-last-read semantics. Audio callbacks write concurrently
// and must never block; an undrained peak is preserved rather than
// overwritten downward, so readers polling at a slower cadence still see
// every spike.
type LevelMeter struct {
	level atomic.Uint32
}

// Record folds an RMS amplitude in the range 0.0-1.0 into the meter.
func (m *LevelMeter) Record(rms float64) {
	scaled := uint32(math.Min(math.Max(rms, 0), 1) * 100)
	for {
		current := m.level.Load()
		if scaled <= current || m.level.CompareAndSwap(current, scaled) {
			return
		}
	}
}

// Take returns the peak level observed since the previous call and resets
// the meter to zero.
func (m *LevelMeter) Take() uint32 {
	return m.level.Swap(0)
}
