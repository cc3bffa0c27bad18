package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
)

// WAVHeaderSize is the size of the canonical PCM WAV header
const WAVHeaderSize = 44

const wavFormatPCM = 1

// ErrNotWAV is returned when data lacks a RIFF/WAVE header
var ErrNotWAV = errors.New("not a PCM WAV file")

// wavHeader renders a canonical 44-byte header for pcmLen bytes of audio
func wavHeader(pcmLen int, cfg CaptureConfig) []byte {
	var buf bytes.Buffer
	blockAlign := cfg.Channels * (cfg.BitDepth / 8)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+pcmLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(wavFormatPCM))
	binary.Write(&buf, binary.LittleEndian, uint16(cfg.Channels))
	binary.Write(&buf, binary.LittleEndian, cfg.SampleRate)
	binary.Write(&buf, binary.LittleEndian, uint32(cfg.BytesPerSecond()))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(cfg.BitDepth))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(pcmLen))

	return buf.Bytes()
}

// WrapPCM returns pcm prefixed with a WAV header
func WrapPCM(pcm []byte, cfg CaptureConfig) []byte {
	out := wavHeader(len(pcm), cfg)
	return append(out, pcm...)
}

// StripWAVHeader returns the PCM payload of a canonical WAV file, or data
// unchanged when it carries no RIFF header
func StripWAVHeader(data []byte) []byte {
	if len(data) >= WAVHeaderSize && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE" {
		return data[WAVHeaderSize:]
	}
	return data
}

// ParseWAV splits a canonical WAV into its format and PCM payload
func ParseWAV(data []byte) (CaptureConfig, []byte, error) {
	if len(data) < WAVHeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return CaptureConfig{}, nil, ErrNotWAV
	}
	if binary.LittleEndian.Uint16(data[20:22]) != wavFormatPCM {
		return CaptureConfig{}, nil, ErrNotWAV
	}

	cfg := CaptureConfig{
		Channels:   uint32(binary.LittleEndian.Uint16(data[22:24])),
		SampleRate: binary.LittleEndian.Uint32(data[24:28]),
		BitDepth:   uint32(binary.LittleEndian.Uint16(data[34:36])),
	}

	pcm := data[WAVHeaderSize:]
	if size := int(binary.LittleEndian.Uint32(data[40:44])); size < len(pcm) {
		pcm = pcm[:size]
	}
	return cfg, pcm, nil
}

// ReadWAV loads a WAV file from disk
func ReadWAV(path string) (CaptureConfig, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CaptureConfig{}, nil, fmt.Errorf("failed to read audio file: %w", err)
	}
	return ParseWAV(data)
}

// WAVWriter streams PCM into a WAV file, fixing up sizes on Close
type WAVWriter struct {
	mu      sync.Mutex
	file    *os.File
	cfg     CaptureConfig
	written int
	closed  bool
}

// CreateWAV creates path and writes a placeholder header
func CreateWAV(path string, cfg CaptureConfig) (*WAVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio file: %w", err)
	}
	if _, err := f.Write(wavHeader(0, cfg)); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write wav header: %w", err)
	}
	return &WAVWriter{file: f, cfg: cfg}, nil
}

// Write appends PCM data
func (w *WAVWriter) Write(pcm []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, os.ErrClosed
	}

	n, err := w.file.Write(pcm)
	w.written += n
	return n, err
}

// BytesWritten returns the PCM payload size so far
func (w *WAVWriter) BytesWritten() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Path returns the file path
func (w *WAVWriter) Path() string {
	return w.file.Name()
}

// Close patches the header sizes and closes the file
func (w *WAVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if _, err := w.file.WriteAt(wavHeader(w.written, w.cfg), 0); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to finalize wav header: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close audio file: %w", err)
	}
	return nil
}
