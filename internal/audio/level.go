package audio

import "math"

// MaxSampleValue is the largest absolute PCM16 sample
const MaxSampleValue = 32768

// PeakAmplitude returns the largest absolute value in little-endian PCM16 data
func PeakAmplitude(data []byte) int {
	peak := 0
	for i := 0; i+1 < len(data); i += 2 {
		sample := int(int16(uint16(data[i]) | uint16(data[i+1])<<8))
		if sample < 0 {
			sample = -sample
		}
		if sample > peak {
			peak = sample
		}
	}
	return peak
}

// RMS calculates the root mean square energy of PCM16 data in [0,1]
func RMS(data []byte) float64 {
	sampleCount := len(data) / 2
	if sampleCount == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < sampleCount; i++ {
		sample := int16(uint16(data[i*2]) | uint16(data[i*2+1])<<8)
		normalized := float64(sample) / MaxSampleValue
		sum += normalized * normalized
	}

	return math.Sqrt(sum / float64(sampleCount))
}

// NormalizeAmplitude maps a raw peak reading onto [0,1]
func NormalizeAmplitude(peak int) float64 {
	if peak <= 0 {
		return 0
	}
	if peak >= MaxSampleValue {
		return 1
	}
	return float64(peak) / MaxSampleValue
}
