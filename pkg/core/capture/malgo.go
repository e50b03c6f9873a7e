package capture

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/quillvoice/quill/pkg/core"
)

// malgoDevice is a microphone backed by miniaudio. The data callback runs
// on a realtime audio thread; it only converts samples and feeds the
// pipeline, which allocates one slice per completed frame.
type malgoDevice struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	mu     sync.Mutex
	closed bool
}

// Open acquires the default capture device. Failure to initialize the
// backend or the device is reported as DeviceUnavailable so the connect
// attempt fails before the session reaches Ready.
func Open(cfg Config, onFrame FrameFunc) (Device, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = 4096
	}

	ctxConfig := malgo.ContextConfig{}
	ctxConfig.ThreadPriority = malgo.ThreadPriorityRealtime

	ctx, err := malgo.InitContext(nil, ctxConfig, nil)
	if err != nil {
		return nil, core.NewDeviceUnavailableError("init audio backend", err)
	}

	pipeline := NewPipeline(cfg.FrameSize, onFrame)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.FrameSize)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			pipeline.Push(decodeF32LE(pInput, int(frameCount)*cfg.Channels))
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, core.NewDeviceUnavailableError("open microphone", err)
	}

	return &malgoDevice{ctx: ctx, device: device}, nil
}

func (m *malgoDevice) Start() error {
	if err := m.device.Start(); err != nil {
		return core.NewDeviceUnavailableError("start microphone", err)
	}
	return nil
}

func (m *malgoDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	_ = m.device.Stop()
	m.device.Uninit()
	_ = m.ctx.Uninit()
	m.ctx.Free()
	return nil
}

// decodeF32LE converts raw little-endian float32 device bytes to samples.
func decodeF32LE(data []byte, n int) []float32 {
	if max := len(data) / 4; n > max {
		n = max
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
