package encoder

import (
	"bytes"
	"fmt"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// FlacEncoder writes a FLAC stream into memory, one frame per block.
type FlacEncoder struct {
	out    bytes.Buffer
	stream *flac.Encoder
	frames uint64
}

func NewFlac() (*FlacEncoder, error) {
	e := &FlacEncoder{}
	stream, err := flac.NewEncoder(&e.out, &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
	})
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	// verbatim subframes are swapped for fixed predictors where smaller
	stream.EnablePredictionAnalysis(true)
	e.stream = stream
	return e, nil
}

func monoFrame(block []int16) *frame.Frame {
	samples := make([]int32, len(block))
	for i, s := range block {
		samples[i] = int32(s)
	}
	return &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(block)),
			SampleRate:    SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   samples,
			NSamples:  len(samples),
		}},
	}
}

func (e *FlacEncoder) EncodeBlock(block []int16) error {
	if len(block) == 0 {
		return nil
	}
	if err := e.stream.WriteFrame(monoFrame(block)); err != nil {
		return fmt.Errorf("writing flac frame: %w", err)
	}
	e.frames += uint64(len(block))
	return nil
}

func (e *FlacEncoder) Close() error        { return e.stream.Close() }
func (e *FlacEncoder) Bytes() []byte       { return e.out.Bytes() }
func (e *FlacEncoder) TotalFrames() uint64 { return e.frames }
