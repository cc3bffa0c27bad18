package notify

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/emmett/voxnote/internal/audio"
)

const (
	toneSampleRate = 44100
	toneTimeout    = 2 * time.Second
)

type tone struct {
	freq   float64
	volume float64
	decay  float64
	dur    float64
	repeat int
}

var tones = map[Pattern]tone{
	PatternStart:  {freq: 1200, volume: 0.5, decay: 60, dur: 0.2, repeat: 1},
	PatternStop:   {freq: 900, volume: 0.5, decay: 40, dur: 0.2, repeat: 1},
	PatternPause:  {freq: 700, volume: 0.4, decay: 50, dur: 0.12, repeat: 1},
	PatternResume: {freq: 1000, volume: 0.4, decay: 50, dur: 0.12, repeat: 1},
	PatternError:  {freq: 350, volume: 0.6, decay: 30, dur: 0.08, repeat: 2},
}

// Tones renders patterns as short decaying sine ticks
type Tones struct {
	player audio.Player
	logger zerolog.Logger
}

// NewTones plays cues through player
func NewTones(player audio.Player, logger zerolog.Logger) *Tones {
	return &Tones{player: player, logger: logger}
}

func (t *Tones) Trigger(p Pattern) {
	pcm := TonePCM(p)
	if pcm == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), toneTimeout)
	defer cancel()
	if err := t.player.Play(ctx, pcm, toneSampleRate); err != nil {
		t.logger.Debug().Err(err).Str("pattern", string(p)).Msg("tone playback failed")
	}
}

// TonePCM returns the mono PCM16 for p, or nil for an unknown pattern
func TonePCM(p Pattern) []byte {
	tn, ok := tones[p]
	if !ok {
		return nil
	}

	tick := sineTick(tn)
	gap := make([]byte, int(toneSampleRate*0.05)*2)

	var out []byte
	for i := 0; i < tn.repeat; i++ {
		if i > 0 {
			out = append(out, gap...)
		}
		out = append(out, tick...)
	}
	return out
}

func sineTick(tn tone) []byte {
	n := int(toneSampleRate * tn.dur)
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / toneSampleRate
		envelope := math.Exp(-t * tn.decay)
		s := int16(math.Sin(2*math.Pi*tn.freq*t) * 32767 * tn.volume * envelope)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
