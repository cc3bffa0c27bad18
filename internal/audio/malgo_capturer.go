package audio

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// MalgoCapture implements Capture using the system default backend via malgo
type MalgoCapture struct {
	logger zerolog.Logger
}

// NewMalgoCapture creates a malgo-backed capture
func NewMalgoCapture(logger zerolog.Logger) *MalgoCapture {
	return &MalgoCapture{logger: logger}
}

// Open initializes a device and starts streaming
func (m *MalgoCapture) Open(ctx context.Context, cfg CaptureConfig) (Stream, error) {
	if cfg.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d", cfg.BitDepth)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = cfg.Channels
	deviceConfig.SampleRate = cfg.SampleRate
	deviceConfig.PeriodSizeInFrames = cfg.BufferFrames

	if cfg.DeviceName != "" {
		info, err := findCaptureDevice(malgoCtx, cfg.DeviceName)
		if err != nil {
			freeContext(malgoCtx)
			return nil, err
		}
		deviceConfig.Capture.DeviceID = info.ID.Pointer()
	}

	bufferBytes := cfg.BufferBytes
	if bufferBytes <= 0 {
		bufferBytes = cfg.BytesPerSecond() * 2
	}

	s := &malgoStream{
		malgoCtx: malgoCtx,
		ring:     NewRingBuffer(bufferBytes),
		ready:    make(chan struct{}, 1),
		closed:   make(chan struct{}),
		logger:   m.logger,
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			s.onData(pInputSamples)
		},
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		freeContext(malgoCtx)
		return nil, fmt.Errorf("failed to initialize device: %w", err)
	}
	s.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		freeContext(malgoCtx)
		return nil, fmt.Errorf("failed to start device: %w", err)
	}

	m.logger.Debug().
		Uint32("sample_rate", cfg.SampleRate).
		Uint32("channels", cfg.Channels).
		Str("device", cfg.DeviceName).
		Msg("capture device started")

	return s, nil
}

func findCaptureDevice(ctx *malgo.AllocatedContext, name string) (*malgo.DeviceInfo, error) {
	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	search := strings.ToLower(name)
	for i := range infos {
		if strings.Contains(strings.ToLower(infos[i].Name()), search) {
			return &infos[i], nil
		}
	}
	return nil, fmt.Errorf("no capture device matching %q", name)
}

func freeContext(ctx *malgo.AllocatedContext) {
	_ = ctx.Uninit()
	ctx.Free()
}

var _ Pauser = (*malgoStream)(nil)

// malgoStream bridges the device callback to blocking reads
type malgoStream struct {
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	ring     *RingBuffer
	ready    chan struct{}
	peak     atomic.Int64
	logger   zerolog.Logger

	mu        sync.Mutex
	paused    bool
	closed    chan struct{}
	closeOnce sync.Once
}

// onData runs on the audio thread and must not block
func (s *malgoStream) onData(samples []byte) {
	if p := int64(PeakAmplitude(samples)); p > s.peak.Load() {
		s.peak.Store(p)
	}

	if dropped := s.ring.Write(samples); dropped > 0 {
		s.logger.Debug().Int("bytes", dropped).Msg("capture buffer overflow, dropped oldest audio")
	}

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

func (s *malgoStream) ReadChunk(ctx context.Context) ([]byte, error) {
	for {
		if data := s.ring.Drain(); len(data) > 0 {
			return data, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.closed:
			if data := s.ring.Drain(); len(data) > 0 {
				return data, nil
			}
			return nil, io.EOF
		case <-s.ready:
		}
	}
}

func (s *malgoStream) MaxAmplitude() (int, error) {
	select {
	case <-s.closed:
		return 0, ErrStreamClosed
	default:
	}
	return int(s.peak.Swap(0)), nil
}

func (s *malgoStream) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused {
		return nil
	}
	if err := s.device.Stop(); err != nil {
		return fmt.Errorf("failed to pause device: %w", err)
	}
	s.paused = true
	return nil
}

func (s *malgoStream) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.paused {
		return nil
	}
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("failed to resume device: %w", err)
	}
	s.paused = false
	return nil
}

func (s *malgoStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if !s.paused {
			if stopErr := s.device.Stop(); stopErr != nil {
				err = fmt.Errorf("failed to stop device: %w", stopErr)
			}
		}
		s.device.Uninit()
		freeContext(s.malgoCtx)
		close(s.closed)
	})
	return err
}
