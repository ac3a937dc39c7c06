package audio

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSilenceSourceEmitsZeroChunks(t *testing.T) {
	var recording atomic.Bool
	recording.Store(true)

	source := NewSilenceSource(48000, &recording)
	if err := source.Start(); err != nil {
		t.Fatalf("Failed to start silence source: %v", err)
	}
	defer source.Stop()

	select {
	case chunk := <-source.Chunks():
		if len(chunk) != 4800 {
			t.Errorf("Expected 4800 samples per chunk at 48kHz, got %d", len(chunk))
		}
		for i, sample := range chunk {
			if sample != 0 {
				t.Fatalf("Expected silence, got %f at index %d", sample, i)
			}
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for a silence chunk")
	}
}

func TestSilenceSourceGatedByRecordingFlag(t *testing.T) {
	var recording atomic.Bool

	source := NewSilenceSource(48000, &recording)
	if err := source.Start(); err != nil {
		t.Fatalf("Failed to start silence source: %v", err)
	}
	defer source.Stop()

	select {
	case <-source.Chunks():
		t.Error("Expected no chunks while the recording flag is down")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestSilenceSourceDefaultsSampleRate(t *testing.T) {
	var recording atomic.Bool
	source := NewSilenceSource(0, &recording)
	if source.SampleRate() != fallbackSampleRate {
		t.Errorf("Expected fallback rate %d, got %d", fallbackSampleRate, source.SampleRate())
	}
}

func TestSilenceSourceStopClosesStream(t *testing.T) {
	var recording atomic.Bool
	source := NewSilenceSource(48000, &recording)
	if err := source.Start(); err != nil {
		t.Fatalf("Failed to start silence source: %v", err)
	}
	source.Stop()
	source.Stop() // must be safe to call twice

	select {
	case _, ok := <-source.Chunks():
		if ok {
			t.Error("Expected closed chunk stream after stop")
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for chunk stream to close")
	}
}
