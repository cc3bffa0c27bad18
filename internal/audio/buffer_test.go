package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingBufferFIFO(t *testing.T) {
	rb := NewRingBuffer(8)

	assert.Equal(t, 0, rb.Write([]byte{1, 2, 3}))
	assert.Equal(t, 3, rb.Available())

	out := make([]byte, 2)
	assert.Equal(t, 2, rb.Read(out))
	assert.Equal(t, []byte{1, 2}, out)
	assert.Equal(t, []byte{3}, rb.Drain())
	assert.Equal(t, 0, rb.Available())
}

func TestRingBufferOverwritesOldest(t *testing.T) {
	rb := NewRingBuffer(4)

	rb.Write([]byte{1, 2, 3})
	evicted := rb.Write([]byte{4, 5, 6})

	assert.Equal(t, 2, evicted)
	assert.Equal(t, int64(2), rb.Dropped())
	assert.Equal(t, []byte{3, 4, 5, 6}, rb.Drain())
}

func TestRingBufferOversizedWrite(t *testing.T) {
	rb := NewRingBuffer(3)

	evicted := rb.Write([]byte{1, 2, 3, 4, 5})

	assert.Equal(t, 2, evicted)
	assert.Equal(t, []byte{3, 4, 5}, rb.Drain())
}

func TestRingBufferReset(t *testing.T) {
	rb := NewRingBuffer(4)
	rb.Write([]byte{1, 2})
	rb.Reset()

	assert.Equal(t, 0, rb.Available())
	assert.Empty(t, rb.Drain())
	assert.Equal(t, 4, rb.Size())
}
