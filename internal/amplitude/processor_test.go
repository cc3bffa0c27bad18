package amplitude

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalizedDB(x float64) float64 {
	return math.Max(0, math.Min(1, (20*math.Log10(x+1e-10)+60)/60))
}

func TestProcessAmplitudeWithoutSmoothing(t *testing.T) {
	p := NewProcessor(Config{WindowSize: 100, SmoothingFactor: 0, Normalize: true}, nil)
	inputs := []float64{0.1, 0.5, 0.9, 0.3, 0.0}

	for _, in := range inputs {
		p.ProcessAmplitude(in)
	}

	wave := p.Waveform()
	require.Len(t, wave, len(inputs))
	for i, in := range inputs {
		assert.InDelta(t, normalizedDB(in), wave[i], 1e-9, "sample %d", i)
		assert.GreaterOrEqual(t, wave[i], 0.0)
		assert.LessOrEqual(t, wave[i], 1.0)
	}
	assert.Greater(t, wave[2], wave[1])
	assert.Greater(t, wave[1], wave[3])
	assert.Equal(t, 0.0, wave[4])
}

func TestProcessAmplitudeEviction(t *testing.T) {
	p := NewProcessor(DefaultConfig(), nil)

	for i := 0; i < 150; i++ {
		p.ProcessAmplitude(0.5)
	}

	assert.Len(t, p.Waveform(), 100)
	assert.InDelta(t, normalizedDB(0.5), p.AverageAmplitude(), 1e-9)
	assert.InDelta(t, normalizedDB(0.5), p.PeakAmplitude(), 1e-9)
}

func TestBufferHoldsLastWindowInOrder(t *testing.T) {
	p := NewProcessor(Config{WindowSize: 100, SmoothingFactor: 0.2, Normalize: true}, nil)

	var emitted []float64
	for i := 0; i < 1000; i++ {
		raw := float64(i%37) / 36
		emitted = append(emitted, p.ProcessAmplitude(raw))
		require.LessOrEqual(t, len(p.Waveform()), 100)
	}

	assert.Equal(t, emitted[len(emitted)-100:], p.Waveform())
}

func TestNormalizedOutputStaysInRange(t *testing.T) {
	p := NewProcessor(DefaultConfig(), nil)

	for _, raw := range []float64{0, 1e300, math.Inf(1), math.NaN(), -5, 1, math.MaxFloat64} {
		v := p.ProcessAmplitude(raw)
		assert.False(t, math.IsNaN(v))
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestRawDBWhenNormalizationDisabled(t *testing.T) {
	p := NewProcessor(Config{WindowSize: 10, SmoothingFactor: 0}, nil)

	silent := p.ProcessAmplitude(0)
	assert.InDelta(t, -200.0, silent, 1e-6)

	p.SetNormalizationEnabled(true)
	assert.Equal(t, 1.0, p.ProcessAmplitude(1))

	p.SetNormalizationEnabled(false)
	inf := p.ProcessAmplitude(math.Inf(1))
	assert.False(t, math.IsInf(inf, 0))
}

func TestEmptyStatsAreZero(t *testing.T) {
	p := NewProcessor(DefaultConfig(), nil)

	assert.Equal(t, 0.0, p.AverageAmplitude())
	assert.Equal(t, 0.0, p.PeakAmplitude())
	assert.Equal(t, Stats{}, p.Stats())
}

func TestSmoothingUsesPreviousValue(t *testing.T) {
	p := NewProcessor(Config{WindowSize: 10, SmoothingFactor: 0.5, Normalize: true}, nil)

	p.ProcessAmplitude(0.8)
	second := p.ProcessAmplitude(0.8)

	// 0 -> 0.4 -> 0.6
	assert.InDelta(t, normalizedDB(0.6), second, 1e-9)
}

func TestSetWindowSize(t *testing.T) {
	p := NewProcessor(Config{WindowSize: 10, SmoothingFactor: 0, Normalize: true}, nil)
	for i := 1; i <= 10; i++ {
		p.ProcessAmplitude(float64(i) / 10)
	}
	before := p.Waveform()

	p.SetWindowSize(3)
	assert.Equal(t, before[7:], p.Waveform())

	p.SetWindowSize(-4)
	assert.Equal(t, 1, p.WindowSize())
	assert.Len(t, p.Waveform(), 1)

	p.ProcessAmplitude(0.2)
	assert.Len(t, p.Waveform(), 1)
}

func TestSetSmoothingFactorClamps(t *testing.T) {
	p := NewProcessor(DefaultConfig(), nil)

	p.SetSmoothingFactor(5)
	assert.Equal(t, 1.0, p.SmoothingFactor())

	p.SetSmoothingFactor(-1)
	assert.Equal(t, 0.0, p.SmoothingFactor())

	p.SetSmoothingFactor(math.NaN())
	assert.Equal(t, 0.0, p.SmoothingFactor())

	q := NewProcessor(Config{WindowSize: 0, SmoothingFactor: 3}, nil)
	assert.Equal(t, 1.0, q.SmoothingFactor())
	assert.Equal(t, 1, q.WindowSize())
}

func TestResetClearsEverything(t *testing.T) {
	store := NewMemoryStore()
	cache := NewCache(100, store)
	p := NewProcessor(Config{WindowSize: 100, SmoothingFactor: 0.5, Normalize: true}, cache)

	p.ProcessAmplitude(0.9)
	_, err := p.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	require.NoError(t, p.Reset(context.Background()))
	assert.Empty(t, p.Waveform())
	assert.Empty(t, cache.Get())
	assert.Equal(t, 0, store.Len())

	// smoothing restarted from 0
	v := p.ProcessAmplitude(0.8)
	assert.InDelta(t, normalizedDB(0.4), v, 1e-9)
}

func TestResetConcurrentWithProcessing(t *testing.T) {
	for i := 0; i < 200; i++ {
		cache := NewCache(100, nil)
		p := NewProcessor(DefaultConfig(), cache)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			p.ProcessAmplitude(0.7)
		}()
		go func() {
			defer wg.Done()
			_ = p.Reset(context.Background())
		}()
		wg.Wait()

		n := len(p.Waveform())
		assert.True(t, n == 0 || n == 1, "unexpected size %d", n)
		assert.Len(t, cache.Get(), n)
	}
}

func TestProcessorForwardsToCache(t *testing.T) {
	cache := NewCache(100, nil)
	p := NewProcessor(Config{WindowSize: 100, SmoothingFactor: 0, Normalize: true}, cache)

	v := p.ProcessAmplitude(0.5)

	assert.Equal(t, []float64{v}, cache.Get())
	assert.Equal(t, v, cache.Last())
}

func TestSnapshotRoundTripThroughCache(t *testing.T) {
	store := NewMemoryStore()
	p := NewProcessor(DefaultConfig(), NewCache(100, store))
	for _, v := range []float64{0.2, 0.4, 0.6} {
		p.ProcessAmplitude(v)
	}

	key, err := p.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SnapshotKey(p.Waveform()), key)

	fresh := NewCache(100, store)
	values, ok, err := fresh.GetFromCache(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p.Waveform(), values)
}

func TestClearKeepsSnapshots(t *testing.T) {
	store := NewMemoryStore()
	p := NewProcessor(DefaultConfig(), NewCache(100, store))
	p.ProcessAmplitude(0.5)
	want := p.Waveform()

	key, err := p.Snapshot(context.Background())
	require.NoError(t, err)

	p.Clear()
	assert.Empty(t, p.Waveform())
	assert.Equal(t, 1, store.Len())

	got, ok, err := p.Lookup(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok, err = NewProcessor(DefaultConfig(), nil).Lookup(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, ok)
}
