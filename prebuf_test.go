package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabidaudio/cdrip/cdparanoia"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// endlessReader returns sectors of a fixed pattern and counts the reads.
type endlessReader struct {
	reads atomic.Int64
}

func (r *endlessReader) Read(p []byte) (int, error) {
	r.reads.Add(1)
	for i := range p {
		p[i] = byte(i)
	}
	return len(p), nil
}

// failingReader returns n bytes and then err.
type failingReader struct {
	n   int
	err error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.n == 0 {
		return 0, r.err
	}
	n := min(len(p), r.n)
	r.n -= n
	return n, nil
}

func testPCM(sectors int) []byte {
	data := make([]byte, sectors*cdparanoia.BytesPerSector)
	for i := range data {
		data[i] = byte(i * 7)
	}
	return data
}

func TestPreBufferReadAll(t *testing.T) {
	data := testPCM(10)
	pb := NewPreBuffer(bytes.NewReader(data), time.Second/75, 2*time.Second/75)
	defer pb.Close()

	errs := make(chan error, 1)
	go func() { errs <- pb.Fill(context.Background()) }()

	require.NoError(t, pb.AwaitHighWaterMark(context.Background()))
	out, err := io.ReadAll(pb)
	require.NoError(t, err)
	assert.Equal(t, data, out)
	assert.NoError(t, <-errs)
}

func TestPreBufferCapacity(t *testing.T) {
	src := &endlessReader{}
	// capacity is at least one sector
	pb := NewPreBuffer(src, 0, 0)
	defer pb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- pb.Fill(ctx) }()

	require.Eventually(t, func() bool {
		return pb.Buffered() == cdparanoia.BytesPerSector
	}, time.Second, time.Millisecond)
	assert.Equal(t, int64(1), src.reads.Load())

	p := make([]byte, cdparanoia.BytesPerSector)
	n, err := io.ReadFull(pb, p)
	require.NoError(t, err)
	assert.Equal(t, cdparanoia.BytesPerSector, n)
	assert.Equal(t, byte(17), p[17])

	require.Eventually(t, func() bool {
		return src.reads.Load() == 2
	}, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errs, context.Canceled)

	// the buffered sector is still handed out, then the cancellation
	n, err = io.ReadFull(pb, p)
	require.NoError(t, err)
	assert.Equal(t, cdparanoia.BytesPerSector, n)
	_, err = pb.Read(p)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPreBufferSourceError(t *testing.T) {
	boom := errors.New("boom")
	pb := NewPreBuffer(&failingReader{n: 100, err: boom}, time.Second, time.Second)
	defer pb.Close()

	assert.ErrorIs(t, pb.Fill(context.Background()), boom)
	assert.ErrorIs(t, pb.AwaitHighWaterMark(context.Background()), boom)

	p := make([]byte, 1000)
	n, err := pb.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	_, err = pb.Read(p)
	assert.ErrorIs(t, err, boom)
}

func TestPreBufferShortSource(t *testing.T) {
	// a source shorter than the high water mark still starts playback
	pb := NewPreBuffer(&failingReader{n: 10, err: io.EOF}, time.Second, time.Second)
	defer pb.Close()

	require.NoError(t, pb.Fill(context.Background()))
	require.NoError(t, pb.AwaitHighWaterMark(context.Background()))
	assert.Equal(t, 10, pb.Buffered())
}

func TestPreBufferAwaitCanceled(t *testing.T) {
	pb := NewPreBuffer(&endlessReader{}, time.Second, time.Second)
	defer pb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pb.AwaitHighWaterMark(ctx), context.DeadlineExceeded)
}

func TestPreBufferClose(t *testing.T) {
	pb := NewPreBuffer(&endlessReader{}, 0, 0)

	errs := make(chan error, 1)
	go func() { errs <- pb.Fill(context.Background()) }()
	require.Eventually(t, func() bool {
		return pb.Buffered() > 0
	}, time.Second, time.Millisecond)

	require.NoError(t, pb.Close())
	assert.NoError(t, <-errs)
	assert.Equal(t, 0, pb.Buffered())

	_, err := pb.Read(make([]byte, 10))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.ErrorIs(t, pb.AwaitHighWaterMark(context.Background()), io.ErrClosedPipe)
}

func TestPreBufferTrackStream(t *testing.T) {
	drive, err := cdparanoia.OpenSimulated(cdparanoia.SimulatedDisc{
		TrackSectors: []int64{4},
		Data: func(s cdparanoia.SectorAddress) cdparanoia.Sector {
			var out cdparanoia.Sector
			out[0] = byte(s + 1)
			return out
		},
	})
	require.NoError(t, err)
	defer drive.Close()
	r, err := drive.NewReader()
	require.NoError(t, err)
	ts, err := r.OpenTrack(1)
	require.NoError(t, err)

	pb := NewPreBuffer(ts, 0, time.Second)
	defer pb.Close()
	require.NoError(t, pb.Fill(context.Background()))

	out, err := io.ReadAll(pb)
	require.NoError(t, err)
	require.Len(t, out, 4*cdparanoia.BytesPerSector)
	for i := range 4 {
		assert.Equal(t, byte(i+1), out[i*cdparanoia.BytesPerSector])
	}
}
