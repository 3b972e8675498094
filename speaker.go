package main

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/faiface/beep"
	"github.com/rabidaudio/cdrip/cdparanoia"
)

var AudioCDFormat = beep.Format{
	SampleRate:  cdparanoia.SampleRate,
	NumChannels: cdparanoia.Channels,
	Precision:   cdparanoia.BytesPerSample,
}

const frameBytes = cdparanoia.Channels * cdparanoia.BytesPerSample

// pcmStreamer plays host-order 16-bit stereo PCM, as read from the disc.
type pcmStreamer struct {
	r      io.Reader
	frames int
	pos    int
	buf    []byte
	err    error
}

func newPCMStreamer(r io.Reader, sizeBytes int64) *pcmStreamer {
	return &pcmStreamer{r: r, frames: int(sizeBytes / frameBytes)}
}

func (s *pcmStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	if s.err != nil {
		return 0, false
	}
	need := len(samples) * frameBytes
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]
	read, err := io.ReadFull(s.r, buf)
	n = read / frameBytes
	for i := range n {
		samples[i][0], samples[i][1] = extractFrame(buf[i*frameBytes:])
	}
	s.pos += n
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		s.err = err
	}
	return n, n > 0
}

func extractFrame(p []byte) (l, r float64) {
	li := int16(binary.NativeEndian.Uint16(p[0:]))
	ri := int16(binary.NativeEndian.Uint16(p[2:]))
	return float64(li) / (1 << 15), float64(ri) / (1 << 15)
}

func (s *pcmStreamer) Err() error {
	return s.err
}

func (s *pcmStreamer) Len() int {
	return s.frames
}

func (s *pcmStreamer) Position() int {
	return s.pos
}

var _ beep.Streamer = (*pcmStreamer)(nil)
