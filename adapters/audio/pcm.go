package audio

import (
	"encoding/binary"
	"math"
)

// decodeF32 reinterprets a little-endian byte buffer from a FormatF32
// capture callback as float32 samples.
func decodeF32(data []byte) []float32 {
	samples := make([]float32, len(data)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}

// downmix averages interleaved multi-channel samples into mono, one output
// sample per frame. A single channel is passed through unchanged.
func downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	mono := make([]float32, 0, len(samples)/channels)
	for frame := 0; frame+channels <= len(samples); frame += channels {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += samples[frame+ch]
		}
		mono = append(mono, sum/float32(channels))
	}
	return mono
}

// rms computes the root-mean-square amplitude of a chunk.
func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSquares float64
	for _, s := range samples {
		sumSquares += float64(s) * float64(s)
	}
	return math.Sqrt(sumSquares / float64(len(samples)))
}
