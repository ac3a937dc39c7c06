package audio

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// fallbackSampleRate is assumed when no input device exists to
	// negotiate a rate with.
	fallbackSampleRate = 48000

	// silenceInterval is the emission cadence of the synthetic source.
	silenceInterval = 100 * time.Millisecond
)

// SilenceSource substitutes a missing microphone with zero-filled chunks
// at a fixed cadence, so the mixing loop keeps a dependable timing master
// and the session does not fail to start.
type SilenceSource struct {
	sampleRate int
	recording  *atomic.Bool
	chunks     chan []float32
	done       chan struct{}
	stopOnce   sync.Once
}

// NewSilenceSource creates a silence source gated by the shared recording
// flag.
func NewSilenceSource(sampleRate int, recording *atomic.Bool) *SilenceSource {
	if sampleRate <= 0 {
		sampleRate = fallbackSampleRate
	}
	return &SilenceSource{
		sampleRate: sampleRate,
		recording:  recording,
		chunks:     make(chan []float32, chunkQueueDepth),
		done:       make(chan struct{}),
	}
}

// Start launches the generator goroutine.
func (s *SilenceSource) Start() error {
	go s.run()
	return nil
}

func (s *SilenceSource) run() {
	ticker := time.NewTicker(silenceInterval)
	defer ticker.Stop()
	defer close(s.chunks)
	samplesPerChunk := s.sampleRate / int(time.Second/silenceInterval)
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if !s.recording.Load() {
				continue
			}
			select {
			case s.chunks <- make([]float32, samplesPerChunk):
			default:
			}
		}
	}
}

// Stop terminates the generator. The generator closes the chunk channel on
// exit so consumers observe end of stream.
func (s *SilenceSource) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

// Chunks returns the zero-filled sample chunks.
func (s *SilenceSource) Chunks() <-chan []float32 {
	return s.chunks
}

// SampleRate returns the assumed sample rate of the synthetic stream.
func (s *SilenceSource) SampleRate() int {
	return s.sampleRate
}
