package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func encodeF32(samples []float32) []byte {
	data := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(s))
	}
	return data
}

func TestDecodeF32RoundTrip(t *testing.T) {
	samples := []float32{0.0, 0.5, -0.5, 1.0, -1.0}
	decoded := decodeF32(encodeF32(samples))

	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}
	for i := range samples {
		if decoded[i] != samples[i] {
			t.Errorf("Expected sample %d to be %f, got %f", i, samples[i], decoded[i])
		}
	}
}

func TestDecodeF32IgnoresTrailingBytes(t *testing.T) {
	data := append(encodeF32([]float32{0.25}), 0xAB, 0xCD)
	decoded := decodeF32(data)
	if len(decoded) != 1 {
		t.Errorf("Expected 1 sample from a partial buffer, got %d", len(decoded))
	}
}

func TestDownmixAveragesChannels(t *testing.T) {
	stereo := []float32{1.0, 0.0, 0.0, 1.0, 0.5, 0.5}
	mono := downmix(stereo, 2)

	expected := []float32{0.5, 0.5, 0.5}
	if len(mono) != len(expected) {
		t.Fatalf("Expected %d frames, got %d", len(expected), len(mono))
	}
	for i := range expected {
		if mono[i] != expected[i] {
			t.Errorf("Expected frame %d to be %f, got %f", i, expected[i], mono[i])
		}
	}
}

func TestDownmixPassesMonoThrough(t *testing.T) {
	samples := []float32{0.1, 0.2, 0.3}
	mono := downmix(samples, 1)
	if len(mono) != 3 {
		t.Fatalf("Expected 3 samples, got %d", len(mono))
	}
	if &mono[0] != &samples[0] {
		t.Error("Expected mono input passed through without copying")
	}
}

func TestDownmixDropsIncompleteFrame(t *testing.T) {
	samples := []float32{0.4, 0.6, 0.8}
	mono := downmix(samples, 2)
	if len(mono) != 1 {
		t.Fatalf("Expected 1 complete frame, got %d", len(mono))
	}
	if mono[0] != 0.5 {
		t.Errorf("Expected averaged frame 0.5, got %f", mono[0])
	}
}

func TestRMS(t *testing.T) {
	if got := rms(nil); got != 0 {
		t.Errorf("Expected 0 for empty chunk, got %f", got)
	}
	if got := rms([]float32{0, 0, 0}); got != 0 {
		t.Errorf("Expected 0 for silence, got %f", got)
	}
	if got := rms([]float32{1, -1, 1, -1}); got != 1 {
		t.Errorf("Expected 1 for full-scale square, got %f", got)
	}
	if got := rms([]float32{0.5, -0.5}); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Expected 0.5, got %f", got)
	}
}
