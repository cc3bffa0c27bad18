package audio

import (
	"context"
	"io"
	"sync"
	"time"
)

// FakeCapture is a scripted Capture for tests and dry runs
type FakeCapture struct {
	// OpenErr is returned by Open when set
	OpenErr error

	// Chunks are delivered in order, then reads block until Close
	Chunks [][]byte

	// ChunkInterval delays each chunk
	ChunkInterval time.Duration

	// Amplitudes are returned by successive MaxAmplitude calls; the last one repeats
	Amplitudes []int

	// PauseSupported makes opened streams implement Pauser
	PauseSupported bool

	mu      sync.Mutex
	streams []*FakeStream
}

// Open returns a new scripted stream
func (f *FakeCapture) Open(ctx context.Context, cfg CaptureConfig) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.OpenErr != nil {
		return nil, f.OpenErr
	}

	s := &FakeStream{
		Config:     cfg,
		chunks:     append([][]byte(nil), f.Chunks...),
		interval:   f.ChunkInterval,
		amplitudes: append([]int(nil), f.Amplitudes...),
		failures:   make(chan error, 1),
		closed:     make(chan struct{}),
	}
	f.streams = append(f.streams, s)

	if f.PauseSupported {
		return &PausableFakeStream{FakeStream: s}, nil
	}
	return s, nil
}

// Opens returns how many streams were opened
func (f *FakeCapture) Opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streams)
}

// Last returns the most recently opened stream
func (f *FakeCapture) Last() *FakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.streams) == 0 {
		return nil
	}
	return f.streams[len(f.streams)-1]
}

// FakeStream is a stream opened by FakeCapture
type FakeStream struct {
	Config CaptureConfig

	mu         sync.Mutex
	chunks     [][]byte
	interval   time.Duration
	amplitudes []int
	ampErr     error
	polls      int
	failures   chan error
	closed     chan struct{}
	closeOnce  sync.Once
}

func (s *FakeStream) ReadChunk(ctx context.Context) ([]byte, error) {
	if s.interval > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.closed:
			return nil, io.EOF
		case err := <-s.failures:
			return nil, err
		case <-time.After(s.interval):
		}
	}

	s.mu.Lock()
	if len(s.chunks) > 0 {
		chunk := s.chunks[0]
		s.chunks = s.chunks[1:]
		s.mu.Unlock()
		return chunk, nil
	}
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closed:
		return nil, io.EOF
	case err := <-s.failures:
		return nil, err
	}
}

func (s *FakeStream) MaxAmplitude() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.closed:
		return 0, ErrStreamClosed
	default:
	}

	s.polls++
	if s.ampErr != nil {
		err := s.ampErr
		s.ampErr = nil
		return 0, err
	}
	if len(s.amplitudes) == 0 {
		return 0, nil
	}
	v := s.amplitudes[0]
	if len(s.amplitudes) > 1 {
		s.amplitudes = s.amplitudes[1:]
	}
	return v, nil
}

func (s *FakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

// Fail makes the next blocked read return err
func (s *FakeStream) Fail(err error) {
	select {
	case s.failures <- err:
	default:
	}
}

// FailNextPoll makes the next MaxAmplitude call return err
func (s *FakeStream) FailNextPoll(err error) {
	s.mu.Lock()
	s.ampErr = err
	s.mu.Unlock()
}

// Polls returns how many times MaxAmplitude was called
func (s *FakeStream) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

// Closed reports whether Close was called
func (s *FakeStream) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// PausableFakeStream adds Pauser to FakeStream
type PausableFakeStream struct {
	*FakeStream

	pmu    sync.Mutex
	paused bool
}

func (p *PausableFakeStream) Pause() error {
	p.pmu.Lock()
	p.paused = true
	p.pmu.Unlock()
	return nil
}

func (p *PausableFakeStream) Resume() error {
	p.pmu.Lock()
	p.paused = false
	p.pmu.Unlock()
	return nil
}

// Paused reports the pause flag
func (p *PausableFakeStream) Paused() bool {
	p.pmu.Lock()
	defer p.pmu.Unlock()
	return p.paused
}
