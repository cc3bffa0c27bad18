package transcription

import (
	"encoding/binary"

	"github.com/emmett/voxnote/internal/audio"
)

// Enhancer preprocesses PCM16 before recognition
type Enhancer interface {
	Enhance(pcm []byte) []byte
}

// Passthrough returns audio unchanged
type Passthrough struct{}

func (Passthrough) Enhance(pcm []byte) []byte { return pcm }

// PeakNormalizer scales quiet recordings so their peak reaches Target (0,1]
type PeakNormalizer struct {
	Target float64
}

func (n PeakNormalizer) Enhance(pcm []byte) []byte {
	peak := audio.PeakAmplitude(pcm)
	target := n.Target
	if target <= 0 || target > 1 {
		target = 0.9
	}
	if peak == 0 {
		return pcm
	}

	gain := target * audio.MaxSampleValue / float64(peak)
	if gain <= 1 {
		return pcm
	}

	out := make([]byte, len(pcm)&^1)
	for i := 0; i+1 < len(pcm); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i:]))) * gain
		switch {
		case s > 32767:
			s = 32767
		case s < -32768:
			s = -32768
		}
		binary.LittleEndian.PutUint16(out[i:], uint16(int16(s)))
	}
	return out
}
