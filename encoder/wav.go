package encoder

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavPCM = 1

type WavEncoder struct {
	out         memFile
	enc         *wav.Encoder
	format      *audio.Format
	totalFrames uint64
	wrote       bool
	mu          sync.Mutex
}

func NewWav() (*WavEncoder, error) {
	e := &WavEncoder{
		format: &audio.Format{NumChannels: Channels, SampleRate: SampleRate},
	}
	e.enc = wav.NewEncoder(&e.out, SampleRate, BitsPerSample, Channels, wavPCM)
	return e, nil
}

func (e *WavEncoder) write(block []int16) error {
	buf := &audio.IntBuffer{
		Format:         e.format,
		Data:           make([]int, len(block)),
		SourceBitDepth: BitsPerSample,
	}
	for i, s := range block {
		buf.Data[i] = int(s)
	}
	if err := e.enc.Write(buf); err != nil {
		return fmt.Errorf("writing wav samples: %w", err)
	}
	e.wrote = true
	return nil
}

func (e *WavEncoder) EncodeBlock(block []int16) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.write(block); err != nil {
		return err
	}
	e.totalFrames += uint64(len(block))
	return nil
}

func (e *WavEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	// the header is emitted lazily on the first write
	if !e.wrote {
		if err := e.write(nil); err != nil {
			return err
		}
	}
	return e.enc.Close()
}

func (e *WavEncoder) Bytes() []byte {
	return e.out.buf
}

func (e *WavEncoder) TotalFrames() uint64 {
	return e.totalFrames
}

// memFile is an in-memory io.WriteSeeker; the wav encoder seeks back to
// patch chunk sizes on Close.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, errors.New("memFile: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("memFile: negative position")
	}
	m.pos = int(abs)
	return abs, nil
}
