// Package amplitude turns raw microphone levels into a smoothed, normalized
// waveform history.
package amplitude

import (
	"context"
	"math"
	"sync"
)

const (
	// DefaultWindowSize is the number of samples kept in the waveform
	DefaultWindowSize = 100

	// DefaultSmoothingFactor weights the previous smoothed value
	DefaultSmoothingFactor = 0.2

	epsilon = 1e-10
	floorDB = -60.0
)

// Config tunes a Processor; out-of-range values are clamped
type Config struct {
	WindowSize      int
	SmoothingFactor float64
	Normalize       bool
}

// DefaultConfig returns the standard waveform settings
func DefaultConfig() Config {
	return Config{
		WindowSize:      DefaultWindowSize,
		SmoothingFactor: DefaultSmoothingFactor,
		Normalize:       true,
	}
}

// Stats summarizes the current waveform
type Stats struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Peak    float64 `json:"peak"`
	Last    float64 `json:"last"`
}

// Processor smooths raw readings, converts them to dB and keeps the last
// WindowSize results. All methods are safe for concurrent use.
type Processor struct {
	mu         sync.Mutex
	windowSize int
	alpha      float64
	normalize  bool
	smoothed   float64
	buffer     []float64
	cache      *Cache
}

// NewProcessor creates a processor. cache may be nil.
func NewProcessor(cfg Config, cache *Cache) *Processor {
	p := &Processor{
		windowSize: clampWindow(cfg.WindowSize),
		alpha:      DefaultSmoothingFactor,
		normalize:  cfg.Normalize,
		cache:      cache,
	}
	p.alpha = clampFactor(cfg.SmoothingFactor, p.alpha)
	p.buffer = make([]float64, 0, p.windowSize)
	return p
}

// ProcessAmplitude folds one raw reading into the waveform and returns the
// emitted sample
func (p *Processor) ProcessAmplitude(raw float64) float64 {
	raw = sanitizeInput(raw)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.smoothed = p.smoothed*p.alpha + raw*(1-p.alpha)
	if math.IsInf(p.smoothed, 1) || math.IsNaN(p.smoothed) {
		p.smoothed = math.MaxFloat64
	}

	sample := 20 * math.Log10(p.smoothed+epsilon)
	if p.normalize {
		sample = clamp01((sample - floorDB) / -floorDB)
	}
	if math.IsNaN(sample) || math.IsInf(sample, 0) {
		sample = 0
	}

	if len(p.buffer) >= p.windowSize {
		// drop oldest, keep capacity
		n := copy(p.buffer, p.buffer[len(p.buffer)-p.windowSize+1:])
		p.buffer = p.buffer[:n]
	}
	p.buffer = append(p.buffer, sample)

	if p.cache != nil {
		p.cache.CacheAmplitude(sample)
	}

	return sample
}

// Waveform returns a copy of the buffered samples, oldest first
func (p *Processor) Waveform() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]float64, len(p.buffer))
	copy(out, p.buffer)
	return out
}

// AverageAmplitude returns the mean of the buffer, 0 when empty
func (p *Processor) AverageAmplitude() float64 {
	return p.Stats().Average
}

// PeakAmplitude returns the max of the buffer, 0 when empty
func (p *Processor) PeakAmplitude() float64 {
	return p.Stats().Peak
}

// Stats reduces over a snapshot of the buffer
func (p *Processor) Stats() Stats {
	samples := p.Waveform()
	if len(samples) == 0 {
		return Stats{}
	}

	var sum float64
	peak := samples[0]
	for _, s := range samples {
		sum += s
		if s > peak {
			peak = s
		}
	}

	return Stats{
		Count:   len(samples),
		Average: sum / float64(len(samples)),
		Peak:    peak,
		Last:    samples[len(samples)-1],
	}
}

// Reset clears the waveform, smoothing state and cache
func (p *Processor) Reset(ctx context.Context) error {
	p.Clear()
	if p.cache != nil {
		return p.cache.ClearStore(ctx)
	}
	return nil
}

// Clear drops in-memory state and keeps persisted snapshots
func (p *Processor) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buffer = p.buffer[:0]
	p.smoothed = 0
	if p.cache != nil {
		p.cache.ClearMemory()
	}
}

// Snapshot persists the current waveform through the cache and returns its key
func (p *Processor) Snapshot(ctx context.Context) (string, error) {
	if p.cache == nil {
		return SnapshotKey(p.Waveform()), nil
	}
	return p.cache.Put(ctx, p.Waveform())
}

// Lookup returns a persisted snapshot by key
func (p *Processor) Lookup(ctx context.Context, key string) ([]float64, bool, error) {
	if p.cache == nil {
		return nil, false, nil
	}
	return p.cache.GetFromCache(ctx, key)
}

// SetWindowSize resizes the buffer, dropping the oldest samples if it shrinks
func (p *Processor) SetWindowSize(n int) {
	n = clampWindow(n)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.windowSize = n
	if len(p.buffer) > n {
		p.buffer = append([]float64(nil), p.buffer[len(p.buffer)-n:]...)
	}
}

// SetSmoothingFactor sets α, clamped to [0,1]
func (p *Processor) SetSmoothingFactor(alpha float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alpha = clampFactor(alpha, p.alpha)
}

// SetNormalizationEnabled toggles the [0,1] rescale
func (p *Processor) SetNormalizationEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.normalize = enabled
}

// WindowSize returns the current buffer capacity
func (p *Processor) WindowSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.windowSize
}

// SmoothingFactor returns the current α
func (p *Processor) SmoothingFactor() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alpha
}

func sanitizeInput(raw float64) float64 {
	switch {
	case math.IsNaN(raw), raw < 0:
		return 0
	case math.IsInf(raw, 1):
		return math.MaxFloat64
	}
	return raw
}

func clampWindow(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// clampFactor keeps α in [0,1]; NaN keeps the current value
func clampFactor(v, current float64) float64 {
	if math.IsNaN(v) {
		return current
	}
	return clamp01(v)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
