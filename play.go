package main

import (
	"context"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/rabidaudio/cdrip/cdparanoia"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	playHighWaterMark = 3 * time.Second
	playBufferSize    = 30 * time.Second
)

// play streams track n to the sound card. The disc is read ahead into a
// PreBuffer so that paranoia retries don't starve the speaker.
func play(ctx context.Context, r *cdparanoia.Reader, n int, logger zerolog.Logger) error {
	ts, err := r.OpenTrack(n)
	if err != nil {
		return err
	}
	pb := NewPreBuffer(ts, playHighWaterMark, playBufferSize)
	defer pb.Close()

	err = speaker.Init(AudioCDFormat.SampleRate, AudioCDFormat.SampleRate.N(time.Second/10))
	if err != nil {
		return err
	}
	defer speaker.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pb.Fill(ctx)
	})
	g.Go(func() error {
		logger.Info().Int("track", n).Msg("filling buffer")
		if err := pb.AwaitHighWaterMark(ctx); err != nil {
			return err
		}
		st := newPCMStreamer(pb, ts.Size())
		done := make(chan struct{})
		speaker.Play(beep.Seq(st, beep.Callback(func() {
			close(done)
		})))
		logger.Info().
			Int("track", n).
			Dur("length", AudioCDFormat.SampleRate.D(st.Len())).
			Msg("playing")

		select {
		case <-done:
			return st.Err()
		case <-ctx.Done():
			speaker.Clear()
			return ctx.Err()
		}
	})
	return g.Wait()
}
