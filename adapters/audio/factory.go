package audio

import (
	"fmt"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/satriahrh/rekam/domain/entities"
	"github.com/satriahrh/rekam/domain/repositories"
)

// DeviceNames reports the currently configured input and output device
// names. Empty names mean the OS default.
type DeviceNames func() (input string, output string)

// Factory opens capture devices through miniaudio, resolving configured
// device names against the enumerated devices of each role.
type Factory struct {
	names  DeviceNames
	logger *zap.Logger
}

var _ repositories.SourceFactory = (*Factory)(nil)

// NewFactory creates a device factory.
func NewFactory(names DeviceNames, logger *zap.Logger) *Factory {
	return &Factory{names: names, logger: logger}
}

// Microphone opens the configured or default input device. When no input
// device exists at all, a synthetic silence source is returned instead so
// the session still has a steady timing master.
func (f *Factory) Microphone(recording *atomic.Bool, meter *entities.LevelMeter) (repositories.ChunkSource, error) {
	name, _ := f.names()
	deviceID, found, err := f.resolve(malgo.Capture, name)
	if err != nil {
		return nil, fmt.Errorf("enumerate input devices: %w", err)
	}
	if !found {
		f.logger.Warn("No input device available, recording microphone as silence")
		return NewSilenceSource(fallbackSampleRate, recording), nil
	}
	source, err := newCaptureSource(malgo.Capture, deviceID, "microphone", recording, meter, f.logger)
	if err != nil {
		return nil, fmt.Errorf("open microphone: %w", err)
	}
	f.logger.Info("Microphone ready",
		zap.Int("sample_rate", source.sampleRate),
		zap.Int("channels", source.channels))
	return source, nil
}

// Loopback captures the monitor path of the configured or default output
// device. Absence of an output device is a hard failure for the segment
// attempt.
func (f *Factory) Loopback(recording *atomic.Bool, meter *entities.LevelMeter) (repositories.ChunkSource, error) {
	_, name := f.names()
	deviceID, found, err := f.resolve(malgo.Playback, name)
	if err != nil {
		return nil, fmt.Errorf("enumerate output devices: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("no output device available for system audio capture")
	}
	source, err := newCaptureSource(malgo.Loopback, deviceID, "system", recording, meter, f.logger)
	if err != nil {
		return nil, fmt.Errorf("open system loopback: %w", err)
	}
	f.logger.Info("System loopback ready",
		zap.Int("sample_rate", source.sampleRate),
		zap.Int("channels", source.channels))
	return source, nil
}

// resolve searches the enumerated devices of a role for an exact name
// match. A configured name that matches nothing falls back to the OS
// default with a warning. found is false only when the role has no devices
// at all.
func (f *Factory) resolve(deviceType malgo.DeviceType, name string) (*malgo.DeviceID, bool, error) {
	infos, err := f.enumerate(deviceType)
	if err != nil {
		return nil, false, err
	}
	if len(infos) == 0 {
		return nil, false, nil
	}
	if name != "" {
		for _, info := range infos {
			if info.Name() == name {
				f.logger.Info("Using configured device", zap.String("device", name))
				id := info.ID
				return &id, true, nil
			}
		}
		f.logger.Warn("Configured device not found, using default", zap.String("device", name))
	}
	// nil device ID selects the OS default for the role.
	return nil, true, nil
}

func (f *Factory) enumerate(deviceType malgo.DeviceType) ([]malgo.DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()
	return ctx.Devices(deviceType)
}

// Devices enumerates the available input and output devices for the
// control plane's device picker.
func (f *Factory) Devices() ([]entities.DeviceInfo, []entities.DeviceInfo, error) {
	capture, err := f.enumerate(malgo.Capture)
	if err != nil {
		return nil, nil, fmt.Errorf("enumerate input devices: %w", err)
	}
	playback, err := f.enumerate(malgo.Playback)
	if err != nil {
		return nil, nil, fmt.Errorf("enumerate output devices: %w", err)
	}
	inputs := make([]entities.DeviceInfo, 0, len(capture))
	for _, info := range capture {
		inputs = append(inputs, entities.DeviceInfo{Name: info.Name(), IsDefault: info.IsDefault != 0})
	}
	outputs := make([]entities.DeviceInfo, 0, len(playback))
	for _, info := range playback {
		outputs = append(outputs, entities.DeviceInfo{Name: info.Name(), IsDefault: info.IsDefault != 0})
	}
	return inputs, outputs, nil
}
