package audio

import (
	"bytes"
	"testing"
	"time"
)

func TestBufferAppendPreservesOrder(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte{0x01, 0x02})
	b.Append([]byte{0x03, 0x04})
	b.Append(nil)
	b.Append([]byte{0x05, 0x06})

	want := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	if got := b.Snapshot(); !bytes.Equal(got, want) {
		t.Errorf("Snapshot() = %v, want %v", got, want)
	}
	if b.Len() != len(want) {
		t.Errorf("Len() = %d, want %d", b.Len(), len(want))
	}
}

func TestBufferAppendCopiesFrame(t *testing.T) {
	b := NewBuffer()
	frame := []byte{0x10, 0x20}
	b.Append(frame)

	// Mutating the caller's slice must not affect accumulated data.
	frame[0] = 0xFF
	if got := b.Snapshot(); got[0] != 0x10 {
		t.Errorf("buffer shares memory with appended frame: got %v", got)
	}
}

func TestBufferSnapshotDoesNotMutate(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte{0x01, 0x02, 0x03, 0x04})

	first := b.Snapshot()
	first[0] = 0xEE

	second := b.Snapshot()
	if second[0] != 0x01 {
		t.Error("mutating a snapshot changed buffer contents")
	}
	if b.Len() != 4 {
		t.Errorf("Len() = %d after snapshots, want 4", b.Len())
	}
}

func TestBufferResetIsolation(t *testing.T) {
	b := NewBuffer()
	b.Append(bytes.Repeat([]byte{0xAB}, 1024))

	b.Reset()

	if b.Len() != 0 {
		t.Errorf("Len() = %d after Reset(), want 0", b.Len())
	}
	if got := b.Snapshot(); len(got) != 0 {
		t.Errorf("Snapshot() after Reset() = %d bytes, want empty", len(got))
	}

	// A fresh session must not see stale data.
	b.Append([]byte{0x01, 0x02})
	if got := b.Snapshot(); !bytes.Equal(got, []byte{0x01, 0x02}) {
		t.Errorf("Snapshot() after reuse = %v, want [1 2]", got)
	}
}

func TestBufferDuration(t *testing.T) {
	b := NewBuffer()
	f := DefaultFormat()

	// One second of mono 16 kHz 16-bit audio is 32000 bytes.
	b.Append(make([]byte, 32000))
	if got := b.Duration(f); got != time.Second {
		t.Errorf("Duration() = %v, want %v", got, time.Second)
	}

	if got := b.Duration(Format{}); got != 0 {
		t.Errorf("Duration() with zero format = %v, want 0", got)
	}
}
