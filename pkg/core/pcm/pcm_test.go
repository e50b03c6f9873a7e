package pcm

import (
	"math"
	"testing"
	"time"
)

func TestEncodeS16LE_Clamping(t *testing.T) {
	tests := []struct {
		name     string
		sample   float32
		expected int16
	}{
		{"zero", 0, 0},
		{"positive full scale", 1.0, 32767},
		{"negative full scale", -1.0, -32768},
		{"over range", 2.5, 32767},
		{"under range", -3.0, -32768},
		{"half", 0.5, 16384},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := EncodeS16LE([]float32{tt.sample})
			got := int16(out[0]) | int16(out[1])<<8
			if got != tt.expected {
				t.Errorf("EncodeS16LE(%v) = %d, want %d", tt.sample, got, tt.expected)
			}
		})
	}
}

func TestRoundTrip_WithinOneQuantizationStep(t *testing.T) {
	// Values that do not land on a 1/32768 grid point expose any
	// truncation in the encoder, so the sweep is dense and the fixed set
	// includes off-grid amplitudes.
	samples := []float32{
		-1.0, -0.99, -0.9, -0.75, -0.7, -0.5, -0.25, -0.001,
		0, 0.001, 0.25, 0.5, 0.7, 0.75, 0.9, 0.99, 1.0,
	}
	for i := 0; i <= 10000; i++ {
		samples = append(samples, float32(-1.0+2.0*float64(i)/10000.0))
	}

	decoded := DecodeS16LE(EncodeS16LE(samples))
	if len(decoded) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(decoded), len(samples))
	}

	const step = 1.0 / 32768.0
	for i, s := range samples {
		if diff := math.Abs(float64(decoded[i]) - float64(s)); diff > step {
			t.Errorf("sample %v round-tripped to %v (error %v > %v)", s, decoded[i], diff, step)
		}
	}
}

func TestRoundTrip_NegativeOneExact(t *testing.T) {
	out := EncodeS16LE([]float32{-1.0})
	got := int16(out[0]) | int16(out[1])<<8
	if got != math.MinInt16 {
		t.Fatalf("encoded -1.0 = %d, want %d", got, math.MinInt16)
	}
	decoded := DecodeS16LE(out)
	if decoded[0] != -1.0 {
		t.Fatalf("decoded minimum value = %v, want exactly -1.0", decoded[0])
	}
}

func TestDecodeS16LE_DividesBy32768(t *testing.T) {
	// 16384 / 32768 = 0.5 exactly; with a 32767 divisor it would not be.
	data := []byte{0x00, 0x40}
	decoded := DecodeS16LE(data)
	if decoded[0] != 0.5 {
		t.Fatalf("decoded 16384 = %v, want 0.5", decoded[0])
	}
}

func TestDecodeS16LE_IgnoresTrailingOddByte(t *testing.T) {
	decoded := DecodeS16LE([]byte{0x00, 0x40, 0x7f})
	if len(decoded) != 1 {
		t.Fatalf("decoded %d samples, want 1", len(decoded))
	}
}

func TestRMS(t *testing.T) {
	tests := []struct {
		name     string
		samples  []float32
		expected float64
	}{
		{"empty", nil, 0},
		{"silence", []float32{0, 0, 0, 0}, 0},
		{"full scale", []float32{1, 1, 1, 1}, 1.0},
		{"half scale", []float32{0.5, 0.5, 0.5, 0.5}, 0.5},
		{"alternating", []float32{0.5, -0.5, 0.5, -0.5}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RMS(tt.samples)
			if math.Abs(got-tt.expected) > 0.001 {
				t.Errorf("RMS = %.4f, want %.4f", got, tt.expected)
			}
		})
	}
}

func TestVolume_ScalesAndClamps(t *testing.T) {
	if got := Volume(0.1); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Volume(0.1) = %v, want 0.5", got)
	}
	if got := Volume(0.5); got != 1.0 {
		t.Errorf("Volume(0.5) = %v, want clamped 1.0", got)
	}
	if got := Volume(0); got != 0 {
		t.Errorf("Volume(0) = %v, want 0", got)
	}
}

func TestSilence(t *testing.T) {
	s := Silence(8000)
	if len(s) != 8000 {
		t.Fatalf("len = %d, want 8000", len(s))
	}
	for i, v := range s {
		if v != 0 {
			t.Fatalf("sample %d = %v, want 0", i, v)
		}
	}

	b := SilenceS16LE(8000)
	if len(b) != 16000 {
		t.Fatalf("encoded len = %d, want 16000", len(b))
	}
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d = %v, want 0", i, v)
		}
	}
}

func TestDuration(t *testing.T) {
	if got := Duration(8000, InputSampleRate); got != 500*time.Millisecond {
		t.Errorf("Duration(8000, 16k) = %v, want 500ms", got)
	}
	if got := Duration(24000, OutputSampleRate); got != time.Second {
		t.Errorf("Duration(24000, 24k) = %v, want 1s", got)
	}
	if got := Duration(100, 0); got != 0 {
		t.Errorf("Duration with zero rate = %v, want 0", got)
	}
}
