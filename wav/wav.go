// Package wav writes linear PCM audio into canonical RIFF/WAVE files.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// HeaderSize is the size of the canonical header: a RIFF chunk holding a
// 16 byte fmt chunk and the header of the data chunk.
const HeaderSize = 44

const formatPCM = 1

// Format describes the PCM data.
type Format struct {
	SampleRate    int
	NumChannels   int
	BitsPerSample int
}

// CDDA is the format of Redbook audio: 44.1KHz 16-bit stereo.
var CDDA = Format{SampleRate: 44100, NumChannels: 2, BitsPerSample: 16}

// BlockAlign is the size of one frame of samples, all channels.
func (f Format) BlockAlign() int {
	return f.NumChannels * f.BitsPerSample / 8
}

// ByteRate is the number of bytes of one second of audio.
func (f Format) ByteRate() int {
	return f.SampleRate * f.BlockAlign()
}

// MaxDataSize is the largest data chunk a header can describe, leaving
// room for the pad byte.
const MaxDataSize = math.MaxUint32 - (HeaderSize - 8) - 1

// ErrTooLarge is returned when the data no longer fits the 32-bit RIFF
// size fields.
var ErrTooLarge = errors.New("wav: data exceeds 4GiB RIFF limit")

// Header returns the header for dataBytes of PCM data in format f.
func Header(f Format, dataBytes uint32) []byte {
	b := make([]byte, HeaderSize)

	copy(b[0:4], "RIFF")
	binary.LittleEndian.PutUint32(b[4:8], dataBytes+HeaderSize-8+dataBytes%2)
	copy(b[8:12], "WAVE")

	copy(b[12:16], "fmt ")
	binary.LittleEndian.PutUint32(b[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(b[20:22], formatPCM)
	binary.LittleEndian.PutUint16(b[22:24], uint16(f.NumChannels))
	binary.LittleEndian.PutUint32(b[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(b[28:32], uint32(f.ByteRate()))
	binary.LittleEndian.PutUint16(b[32:34], uint16(f.BlockAlign()))
	binary.LittleEndian.PutUint16(b[34:36], uint16(f.BitsPerSample))

	copy(b[36:40], "data")
	binary.LittleEndian.PutUint32(b[40:44], dataBytes)
	return b
}

// Writer streams PCM data into a WAVE file. The header is written up front
// for the expected size; if a different amount of data was written, Close
// seeks back and rewrites it. Samples must already be little-endian.
type Writer struct {
	w        io.WriteSeeker
	format   Format
	expected int64
	written  int64
	closed   bool
}

// NewWriter writes the header for expectedBytes of data to w. w should be
// positioned at its start.
func NewWriter(w io.WriteSeeker, f Format, expectedBytes int64) (*Writer, error) {
	if expectedBytes < 0 || expectedBytes > MaxDataSize {
		return nil, fmt.Errorf("wav: expected size %d: %w", expectedBytes, ErrTooLarge)
	}
	if _, err := w.Write(Header(f, uint32(expectedBytes))); err != nil {
		return nil, fmt.Errorf("wav: write header: %w", err)
	}
	return &Writer{w: w, format: f, expected: expectedBytes}, nil
}

// Format returns the format announced in the header.
func (w *Writer) Format() Format {
	return w.format
}

// Written returns the number of data bytes written so far.
func (w *Writer) Written() int64 {
	return w.written
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("wav: write to closed writer")
	}
	if w.written+int64(len(p)) > MaxDataSize {
		return 0, ErrTooLarge
	}
	n, err := w.w.Write(p)
	w.written += int64(n)
	return n, err
}

// Close finishes the file: it pads the data chunk to an even length and
// fixes the header sizes if needed. It does not close the underlying
// writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.written%2 != 0 {
		if _, err := w.w.Write([]byte{0}); err != nil {
			return fmt.Errorf("wav: write pad byte: %w", err)
		}
	}
	if w.written == w.expected {
		return nil
	}

	end, err := w.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("wav: rewrite header: %w", err)
	}
	if _, err := w.w.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("wav: rewrite header: %w", err)
	}
	if _, err := w.w.Write(Header(w.format, uint32(w.written))); err != nil {
		return fmt.Errorf("wav: rewrite header: %w", err)
	}
	if _, err := w.w.Seek(end, io.SeekStart); err != nil {
		return fmt.Errorf("wav: rewrite header: %w", err)
	}
	return nil
}
