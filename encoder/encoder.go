package encoder

import (
	"encoding/binary"
	"fmt"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

type Format string

const (
	FormatWAV  Format = "wav"
	FormatFLAC Format = "flac"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatWAV, "":
		return FormatWAV, nil
	case FormatFLAC:
		return FormatFLAC, nil
	}
	return "", fmt.Errorf("unknown audio format %q (use wav or flac)", s)
}

// MIME is the media type of the container the format produces.
func (f Format) MIME() string {
	if f == FormatFLAC {
		return "audio/flac"
	}
	return "audio/wav"
}

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
}

func New(f Format) (Encoder, error) {
	switch f {
	case FormatWAV:
		return NewWav()
	case FormatFLAC:
		return NewFlac()
	}
	return nil, fmt.Errorf("unknown audio format %q", f)
}

// EncodePCM encodes little-endian PCM16 mono bytes into a complete container.
// An empty input yields a valid container with no samples.
func EncodePCM(f Format, pcm []byte) ([]byte, error) {
	enc, err := New(f)
	if err != nil {
		return nil, err
	}
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	for i := 0; i < len(samples); i += BlockSize {
		end := min(i+BlockSize, len(samples))
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing %s encoder: %w", f, err)
	}
	return enc.Bytes(), nil
}
