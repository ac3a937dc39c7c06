package audio

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/satriahrh/rekam/domain/entities"
	"github.com/satriahrh/rekam/domain/repositories"
)

// chunkQueueDepth is the capacity of the chunk channel between a capture
// callback and the mixing loop. At typical callback sizes this holds tens
// of seconds of audio; the callback must never block, so a full queue
// drops the chunk and counts it instead.
const chunkQueueDepth = 256

// captureSource wraps a running miniaudio device as a ChunkSource. The
// device callback downmixes to mono, feeds the level meter, and publishes
// chunks only while the shared recording flag is set, so live metering
// keeps working while the session is idle.
type captureSource struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	chunks     chan []float32
	sampleRate int
	channels   int
	role       string
	recording  *atomic.Bool
	meter      *entities.LevelMeter
	dropped    atomic.Uint64
	logger     *zap.Logger
	stopOnce   sync.Once
}

var _ repositories.ChunkSource = (*captureSource)(nil)

// newCaptureSource initializes a capture device of the given type. For
// loopback the device ID addresses a playback device whose monitor path is
// captured. The device is initialized but not started.
func newCaptureSource(
	deviceType malgo.DeviceType,
	deviceID *malgo.DeviceID,
	role string,
	recording *atomic.Bool,
	meter *entities.LevelMeter,
	logger *zap.Logger,
) (*captureSource, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("Audio backend message", zap.String("message", message))
	})
	if err != nil {
		return nil, err
	}

	s := &captureSource{
		ctx:       ctx,
		chunks:    make(chan []float32, chunkQueueDepth),
		role:      role,
		recording: recording,
		meter:     meter,
		logger:    logger,
	}

	deviceConfig := malgo.DefaultDeviceConfig(deviceType)
	deviceConfig.Capture.Format = malgo.FormatF32
	if deviceID != nil {
		deviceConfig.Capture.DeviceID = deviceID.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: s.onData,
		Stop: func() {
			// Device disconnection mid-stream. Logged, not propagated;
			// the mixing loop keeps running on its timeout.
			s.logger.Warn("Capture device stopped", zap.String("role", s.role))
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, err
	}
	s.device = device
	s.sampleRate = int(device.SampleRate())
	s.channels = int(device.CaptureChannels())
	return s, nil
}

// onData runs on the OS audio thread. It must not block and must not hold
// locks across anything blocking.
func (s *captureSource) onData(_, input []byte, _ uint32) {
	if len(input) == 0 {
		return
	}
	mono := downmix(decodeF32(input), s.channels)
	s.meter.Record(rms(mono))
	if !s.recording.Load() {
		return
	}
	select {
	case s.chunks <- mono:
	default:
		s.dropped.Add(1)
	}
}

// Start begins the device callback stream.
func (s *captureSource) Start() error {
	return s.device.Start()
}

// Stop tears the device down. Safe to call more than once.
func (s *captureSource) Stop() {
	s.stopOnce.Do(func() {
		_ = s.device.Stop()
		s.device.Uninit()
		_ = s.ctx.Uninit()
		s.ctx.Free()
		if n := s.dropped.Load(); n > 0 {
			s.logger.Warn("Capture chunks dropped by slow consumer",
				zap.String("role", s.role),
				zap.Uint64("dropped", n))
		}
		close(s.chunks)
	})
}

// Chunks returns the downmixed mono sample chunks.
func (s *captureSource) Chunks() <-chan []float32 {
	return s.chunks
}

// SampleRate returns the negotiated device sample rate.
func (s *captureSource) SampleRate() int {
	return s.sampleRate
}
