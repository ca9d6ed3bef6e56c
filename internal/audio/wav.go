package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// HeaderSize is the size of a canonical PCM WAV header in bytes.
const HeaderSize = 44

// Format describes the PCM sample format of a payload.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// DefaultFormat is mono 16 kHz 16-bit PCM, the only format the capture
// layer produces.
func DefaultFormat() Format {
	return Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16}
}

func (f Format) ByteRate() int {
	return f.SampleRate * f.Channels * f.BitsPerSample / 8
}

func (f Format) BlockAlign() int {
	return f.Channels * f.BitsPerSample / 8
}

func (f Format) validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("channel count must be positive, got %d", f.Channels)
	}
	if f.BitsPerSample <= 0 || f.BitsPerSample%8 != 0 {
		return fmt.Errorf("bits per sample must be a positive multiple of 8, got %d", f.BitsPerSample)
	}
	return nil
}

// PayloadDuration reports how long a raw PCM payload plays for in the
// given format.
func PayloadDuration(payload []byte, f Format) time.Duration {
	byteRate := f.ByteRate()
	if byteRate <= 0 {
		return 0
	}
	return time.Duration(len(payload)) * time.Second / time.Duration(byteRate)
}

// wavHeader is the 44-byte RIFF/WAVE header, little-endian throughout.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
	RiffFormat    [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 = linear PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // payload length in bytes
}

// Encode wraps a raw PCM payload in a canonical WAV container. An empty
// payload is legal and yields a header-only container.
func Encode(payload []byte, f Format) ([]byte, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(len(payload)) + HeaderSize - 8,
		RiffFormat:    [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(f.Channels),
		SampleRate:    uint32(f.SampleRate),
		ByteRate:      uint32(f.ByteRate()),
		BlockAlign:    uint16(f.BlockAlign()),
		BitsPerSample: uint16(f.BitsPerSample),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(len(payload)),
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(payload)))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("write WAV header: %w", err)
	}
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Decode parses a WAV container produced by Encode and returns the raw
// payload and its format.
func Decode(data []byte) ([]byte, Format, error) {
	if len(data) < HeaderSize {
		return nil, Format{}, fmt.Errorf("WAV data too short: need at least %d bytes, got %d", HeaderSize, len(data))
	}

	var header wavHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, Format{}, fmt.Errorf("read WAV header: %w", err)
	}

	if string(header.ChunkID[:]) != "RIFF" {
		return nil, Format{}, fmt.Errorf("invalid WAV file: missing RIFF header")
	}
	if string(header.RiffFormat[:]) != "WAVE" {
		return nil, Format{}, fmt.Errorf("invalid WAV file: missing WAVE format")
	}
	if string(header.Subchunk1ID[:]) != "fmt " {
		return nil, Format{}, fmt.Errorf("invalid WAV file: missing fmt chunk")
	}
	if string(header.Subchunk2ID[:]) != "data" {
		return nil, Format{}, fmt.Errorf("invalid WAV file: missing data chunk")
	}
	if header.AudioFormat != 1 {
		return nil, Format{}, fmt.Errorf("unsupported audio format %d: only linear PCM is supported", header.AudioFormat)
	}
	if int(header.Subchunk2Size) > len(data)-HeaderSize {
		return nil, Format{}, fmt.Errorf("truncated WAV file: header declares %d payload bytes, %d present",
			header.Subchunk2Size, len(data)-HeaderSize)
	}

	payload := make([]byte, header.Subchunk2Size)
	copy(payload, data[HeaderSize:HeaderSize+int(header.Subchunk2Size)])

	f := Format{
		SampleRate:    int(header.SampleRate),
		Channels:      int(header.NumChannels),
		BitsPerSample: int(header.BitsPerSample),
	}
	return payload, f, nil
}
