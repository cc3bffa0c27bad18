package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// Player plays mono PCM16 and blocks until playback drains or ctx is done
type Player interface {
	Play(ctx context.Context, pcm []byte, sampleRate uint32) error
}

// MalgoPlayer plays through the default output device
type MalgoPlayer struct{}

func (MalgoPlayer) Play(ctx context.Context, pcm []byte, sampleRate uint32) error {
	if len(pcm) == 0 {
		return nil
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer freeContext(malgoCtx)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = sampleRate

	var (
		pos      int
		drained  = make(chan struct{})
		doneOnce sync.Once
	)
	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			n := copy(out, pcm[pos:])
			pos += n
			if n < len(out) {
				clear(out[n:])
				doneOnce.Do(func() { close(drained) })
			}
		},
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	select {
	case <-drained:
	case <-ctx.Done():
	}
	return device.Stop()
}
