package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rabidaudio/cdrip/cdparanoia"
)

// bytesPerSecond of CD-DA audio.
const bytesPerSecond = cdparanoia.SampleRate * cdparanoia.Channels * cdparanoia.BytesPerSample

// PreBuffer reads ahead of playback. Fill copies from the source into
// memory until capacity is reached, Read hands the data out, blocking
// while the buffer is empty.
type PreBuffer struct {
	src      io.Reader
	hwm      int
	capacity int

	mu     sync.Mutex
	cond   *sync.Cond
	buf    bytes.Buffer
	err    error // source error, io.EOF once drained
	closed bool
}

// NewPreBuffer buffers up to capacity worth of audio from src. Playback
// should start once hwm is buffered, see AwaitHighWaterMark.
func NewPreBuffer(src io.Reader, hwm, capacity time.Duration) *PreBuffer {
	pb := &PreBuffer{
		src:      src,
		hwm:      durationBytes(hwm),
		capacity: max(durationBytes(capacity), cdparanoia.BytesPerSector),
	}
	pb.hwm = min(pb.hwm, pb.capacity)
	pb.cond = sync.NewCond(&pb.mu)
	return pb
}

func durationBytes(d time.Duration) int {
	return int(d.Seconds() * bytesPerSecond)
}

func (pb *PreBuffer) wake() {
	pb.mu.Lock()
	pb.cond.Broadcast()
	pb.mu.Unlock()
}

// Fill reads the source until it is exhausted, the context is done or the
// buffer is closed. It returns nil when the source ends with io.EOF.
func (pb *PreBuffer) Fill(ctx context.Context) error {
	stop := context.AfterFunc(ctx, pb.wake)
	defer stop()

	p := make([]byte, cdparanoia.BytesPerSector)
	for {
		pb.mu.Lock()
		for pb.buf.Len() >= pb.capacity && !pb.closed && ctx.Err() == nil {
			pb.cond.Wait()
		}
		if pb.closed {
			pb.mu.Unlock()
			return nil
		}
		if err := ctx.Err(); err != nil {
			pb.err = err
			pb.cond.Broadcast()
			pb.mu.Unlock()
			return err
		}
		pb.mu.Unlock()

		n, err := pb.src.Read(p)

		pb.mu.Lock()
		if !pb.closed {
			pb.buf.Write(p[:n])
		}
		if err != nil {
			pb.err = err
		}
		pb.cond.Broadcast()
		pb.mu.Unlock()

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// AwaitHighWaterMark blocks until the high water mark is buffered or the
// source has ended.
func (pb *PreBuffer) AwaitHighWaterMark(ctx context.Context) error {
	stop := context.AfterFunc(ctx, pb.wake)
	defer stop()

	pb.mu.Lock()
	defer pb.mu.Unlock()
	for pb.buf.Len() < pb.hwm && pb.err == nil && !pb.closed && ctx.Err() == nil {
		pb.cond.Wait()
	}
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case pb.closed:
		return io.ErrClosedPipe
	case pb.err != nil && !errors.Is(pb.err, io.EOF):
		return pb.err
	}
	return nil
}

// Read blocks until data is buffered. Once the buffer is drained it
// returns the error that ended Fill.
func (pb *PreBuffer) Read(p []byte) (int, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	for pb.buf.Len() == 0 && pb.err == nil && !pb.closed {
		pb.cond.Wait()
	}
	if pb.closed {
		return 0, io.ErrClosedPipe
	}
	if pb.buf.Len() > 0 {
		n, _ := pb.buf.Read(p)
		pb.cond.Broadcast()
		return n, nil
	}
	return 0, pb.err
}

// Buffered returns the number of bytes waiting to be read.
func (pb *PreBuffer) Buffered() int {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.buf.Len()
}

// Close discards the buffer and interrupts Fill and Read.
func (pb *PreBuffer) Close() error {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.closed = true
	pb.buf.Reset()
	pb.cond.Broadcast()
	return nil
}
