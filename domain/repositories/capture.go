package repositories

import (
	"sync/atomic"

	"github.com/satriahrh/rekam/domain/entities"
)

// ChunkSource is a running audio input that produces bounded mono float32
// sample chunks and feeds a level meter. Both real capture devices and the
// silence fallback implement it; consumers cannot tell which they hold.
//
// Chunks are never mutated after being published. While the recording flag
// is down the source keeps running and keeps metering, but publishes no
// audio.
type ChunkSource interface {
	Start() error
	Stop()
	Chunks() <-chan []float32
	SampleRate() int
}

// SourceFactory resolves configured device names into chunk sources.
type SourceFactory interface {
	// Microphone opens the configured or default input device. When no
	// input device exists at all it degrades to a synthetic silence
	// source so the session still has a timing master.
	Microphone(recording *atomic.Bool, meter *entities.LevelMeter) (ChunkSource, error)

	// Loopback opens the monitor path of the configured or default
	// output device. A missing output device is a hard failure.
	Loopback(recording *atomic.Bool, meter *entities.LevelMeter) (ChunkSource, error)

	// Devices enumerates the available input and output devices.
	Devices() (inputs []entities.DeviceInfo, outputs []entities.DeviceInfo, err error)
}
