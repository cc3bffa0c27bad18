package app

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/emmett/voxnote/internal/output"
)

// EventType names an orchestrator event
type EventType string

const (
	EventStateChanged           EventType = "state_changed"
	EventAmplitude              EventType = "amplitude"
	EventDuration               EventType = "duration"
	EventTranscriptionStarted   EventType = "transcription_started"
	EventTranscriptionCompleted EventType = "transcription_completed"
	EventError                  EventType = "error"
)

// Event is delivered to bus subscribers. Only fields relevant to Type are set.
type Event struct {
	Type      EventType     `json:"type"`
	Time      time.Time     `json:"time"`
	SessionID string        `json:"session_id,omitempty"`
	State     string        `json:"state,omitempty"`
	Previous  string        `json:"previous,omitempty"`
	Amplitude float64       `json:"amplitude,omitempty"`
	Elapsed   time.Duration `json:"elapsed_ns,omitempty"`
	Note      *output.Note  `json:"note,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Bus fans events out to subscribers. Publish never blocks; a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	next    int
	closed  bool
	dropped atomic.Int64
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and a func that unsubscribes and
// closes it
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers e to every subscriber that has room
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns the number of undelivered events
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close closes all subscriber channels
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
