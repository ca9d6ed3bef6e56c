package audio

import (
	"sync"
	"time"
)

// Buffer accumulates raw little-endian 16-bit PCM bytes for one recording
// session. The capture goroutine appends while the controller reads a
// snapshot only after capture has stopped, so a single mutex is enough.
type Buffer struct {
	mu   sync.Mutex
	data []byte
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append extends the buffer with the frame's bytes in arrival order.
// The frame is copied; callers may reuse the slice.
func (b *Buffer) Append(frame []byte) {
	if len(frame) == 0 {
		return
	}
	b.mu.Lock()
	b.data = append(b.data, frame...)
	b.mu.Unlock()
}

// Snapshot returns a copy of the accumulated bytes without mutating state.
func (b *Buffer) Snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// Reset clears the buffer. Must be called before every new session so stale
// audio never leaks into a new container.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.data = nil
	b.mu.Unlock()
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Duration reports how much audio the buffer holds for the given format.
func (b *Buffer) Duration(f Format) time.Duration {
	byteRate := f.SampleRate * f.Channels * f.BitsPerSample / 8
	if byteRate <= 0 {
		return 0
	}
	return time.Duration(b.Len()) * time.Second / time.Duration(byteRate)
}
