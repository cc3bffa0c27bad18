package audio

import "sync"

// RingBuffer is a bounded byte FIFO between the device callback and readers.
// When full, writes overwrite the oldest bytes.
type RingBuffer struct {
	mu       sync.Mutex
	buffer   []byte
	size     int
	writePos int
	readPos  int
	count    int
	dropped  int64
}

// NewRingBuffer creates a new ring buffer with the specified size in bytes
func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{
		buffer: make([]byte, size),
		size:   size,
	}
}

// Write appends data, evicting the oldest bytes on overflow.
// Returns the number of bytes evicted.
func (rb *RingBuffer) Write(data []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	// Only the tail of an oversized write can survive
	evicted := 0
	if len(data) > rb.size {
		evicted = len(data) - rb.size
		data = data[evicted:]
	}

	for _, b := range data {
		rb.buffer[rb.writePos] = b
		rb.writePos = (rb.writePos + 1) % rb.size
		if rb.count == rb.size {
			rb.readPos = (rb.readPos + 1) % rb.size
			evicted++
		} else {
			rb.count++
		}
	}

	rb.dropped += int64(evicted)
	return evicted
}

// Read reads up to len(data) bytes from the buffer
// Returns the number of bytes read
func (rb *RingBuffer) Read(data []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := 0
	for n < len(data) && rb.count > 0 {
		data[n] = rb.buffer[rb.readPos]
		rb.readPos = (rb.readPos + 1) % rb.size
		rb.count--
		n++
	}
	return n
}

// Drain returns everything buffered and empties the buffer
func (rb *RingBuffer) Drain() []byte {
	rb.mu.Lock()
	n := rb.count
	rb.mu.Unlock()

	out := make([]byte, n)
	return out[:rb.Read(out)]
}

// Available returns the number of bytes available to read
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Dropped returns the total number of bytes evicted by overflow
func (rb *RingBuffer) Dropped() int64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.dropped
}

// Reset clears the buffer
func (rb *RingBuffer) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.readPos = 0
	rb.writePos = 0
	rb.count = 0
}

// Size returns the total size of the buffer
func (rb *RingBuffer) Size() int {
	return rb.size
}
