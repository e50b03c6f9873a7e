// Package pcm converts between linear float samples and the 16-bit signed
// little-endian PCM wire format used by the live audio channel.
//
// All functions are pure and allocation is bounded by the input size, so
// they are safe to call inline from device and network callbacks.
package pcm

import (
	"math"
	"time"
)

const (
	// InputSampleRate is the capture-side wire rate in Hz.
	InputSampleRate = 16000

	// OutputSampleRate is the rate of synthesized model audio in Hz.
	OutputSampleRate = 24000

	bytesPerSample = 2
)

// EncodeS16LE encodes normalized float samples as 16-bit signed
// little-endian PCM. Each sample is clamped to [-1, 1] before scaling so
// out-of-range input cannot wrap around into clicks. Scaling is by 32768
// with round-to-nearest, capped at 32767, which keeps -1.0 at exactly
// -32768 and the round-trip error within one quantization step.
func EncodeS16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, f := range samples {
		if f > 1 {
			f = 1
		} else if f < -1 {
			f = -1
		}
		v := int32(math.Round(float64(f) * 32768))
		if v > math.MaxInt16 {
			v = math.MaxInt16
		}
		s := int16(v)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// DecodeS16LE decodes 16-bit signed little-endian PCM to normalized float
// samples. Division is by 32768 (not 32767) so the negative range stays
// exact; -32768 decodes to exactly -1.0. A trailing odd byte is ignored.
func DecodeS16LE(data []byte) []float32 {
	n := len(data) / bytesPerSample
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(data[i*2]) | int16(data[i*2+1])<<8
		out[i] = float32(s) / 32768.0
	}
	return out
}

// RMS computes the root-mean-square energy of a frame of normalized
// samples. Returns a value in [0, 1].
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, f := range samples {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Volume maps an RMS energy to a [0, 1] displayable level. Speech RMS
// rarely approaches full scale, so the value is boosted before clamping.
func Volume(rms float64) float64 {
	return math.Min(1, rms*5)
}

// Silence returns n zero-valued samples.
func Silence(n int) []float32 {
	return make([]float32, n)
}

// SilenceS16LE returns n zero samples already encoded as PCM16.
func SilenceS16LE(n int) []byte {
	return make([]byte, n*bytesPerSample)
}

// Duration returns the playback duration of n samples at the given rate.
func Duration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(sampleRate)
}

// SampleCount returns the number of samples in an encoded PCM16 buffer.
func SampleCount(data []byte) int {
	return len(data) / bytesPerSample
}
