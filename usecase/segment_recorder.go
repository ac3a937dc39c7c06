package usecase

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/zap"

	"github.com/satriahrh/rekam/domain/entities"
	"github.com/satriahrh/rekam/domain/repositories"
)

// recordSegments is the real-time heart of the session. It opens both
// capture streams once, then writes consecutive bounded-duration segments
// until the recording flag is cleared. The microphone is the timing
// master: it is always present (or virtualized as silence), so it provides
// a dependable clock; system audio is an enrichment stream that may be
// absent, bursty, or silent.
func (s *SessionService) recordSegments(recordingID, startSequence int64) error {
	mic, err := s.sources.Microphone(&s.session.Recording, &s.session.InputLevel)
	if err != nil {
		return err
	}
	defer mic.Stop()

	system, err := s.sources.Loopback(&s.session.Recording, &s.session.OutputLevel)
	if err != nil {
		return err
	}
	defer system.Stop()

	if err := mic.Start(); err != nil {
		return fmt.Errorf("start microphone stream: %w", err)
	}
	if err := system.Start(); err != nil {
		return fmt.Errorf("start system audio stream: %w", err)
	}

	// Mixing happens without resampling. A rate mismatch drifts instead
	// of failing.
	if mic.SampleRate() != system.SampleRate() {
		s.logger.Warn("Sample rates differ, mixing without resampling",
			zap.Int("microphone", mic.SampleRate()),
			zap.Int("system", system.SampleRate()))
	}

	sequence := startSequence
	var systemBuffer []float32
	for s.session.Recording.Load() {
		if err := s.recordOneSegment(recordingID, sequence, mic, system, &systemBuffer); err != nil {
			return err
		}
		sequence++
		s.session.SetSequence(sequence)
	}
	return nil
}

// recordOneSegment writes a single WAV file until the duration ceiling is
// reached or the recording flag drops, then submits it for upload.
func (s *SessionService) recordOneSegment(
	recordingID, sequence int64,
	mic, system repositories.ChunkSource,
	systemBuffer *[]float32,
) error {
	sampleRate := mic.SampleRate()
	path := filepath.Join(s.tempDir, fmt.Sprintf("%d_%d.wav", recordingID, sequence))
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create segment file: %w", err)
	}
	encoder := wav.NewEncoder(file, sampleRate, 16, 1, 1)
	format := &goaudio.Format{NumChannels: 1, SampleRate: sampleRate}

	start := time.Now()
	writeErr := func() error {
		for s.session.Recording.Load() && time.Since(start) < s.maxSegment {
			select {
			case chunk, ok := <-mic.Chunks():
				if !ok {
					return errors.New("microphone stream closed")
				}
				drainSystem(systemBuffer, system.Chunks())
				pcm := mixChunk(chunk, systemBuffer)
				buffer := &goaudio.IntBuffer{Format: format, Data: pcm, SourceBitDepth: 16}
				if err := encoder.Write(buffer); err != nil {
					return fmt.Errorf("write segment audio: %w", err)
				}
			case <-time.After(s.chunkTimeoutOr()):
				// Not an error: the timeout is the cooperative
				// checkpoint for the stop and pause signals.
			}
		}
		return nil
	}()

	if err := encoder.Close(); err != nil && writeErr == nil {
		writeErr = fmt.Errorf("finalize segment: %w", err)
	}
	if err := file.Close(); err != nil && writeErr == nil {
		writeErr = fmt.Errorf("close segment file: %w", err)
	}
	if writeErr != nil {
		return writeErr
	}

	s.logger.Info("Segment finished",
		zap.Int64("recording_id", recordingID),
		zap.Int64("sequence", sequence),
		zap.String("path", path))
	s.uploads.Submit(entities.Segment{
		RecordingID: recordingID,
		Sequence:    sequence,
		SampleRate:  sampleRate,
		Path:        path,
	})
	return nil
}

func (s *SessionService) chunkTimeoutOr() time.Duration {
	if s.chunkWait > 0 {
		return s.chunkWait
	}
	return chunkTimeout
}

// drainSystem moves every currently available system-audio chunk into the
// rolling buffer without blocking.
func drainSystem(buffer *[]float32, chunks <-chan []float32) {
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			*buffer = append(*buffer, chunk...)
		default:
			return
		}
	}
}

// mixChunk folds buffered system samples into a microphone chunk and
// converts the result to 16-bit PCM. The microphone drives the output
// length; any system shortfall is an implicit silence fill, never dropped
// microphone audio. Consumed system samples are removed from the buffer.
func mixChunk(mic []float32, systemBuffer *[]float32) []int {
	system := *systemBuffer
	out := make([]int, len(mic))
	for i, sample := range mic {
		mixed := sample
		if i < len(system) {
			mixed += system[i]
		}
		// Hard clip to prevent integer wrapping.
		if mixed > 1.0 {
			mixed = 1.0
		} else if mixed < -1.0 {
			mixed = -1.0
		}
		out[i] = int(mixed * math.MaxInt16)
	}
	if len(system) > len(mic) {
		*systemBuffer = append((*systemBuffer)[:0], system[len(mic):]...)
	} else {
		*systemBuffer = (*systemBuffer)[:0]
	}
	return out
}
