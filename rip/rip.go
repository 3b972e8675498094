// Package rip copies audio tracks off a disc into WAV files using a
// paranoia reader.
package rip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rabidaudio/cdrip/cdparanoia"
	"github.com/rabidaudio/cdrip/wav"
	"github.com/rs/zerolog"
)

// ErrDataTrack is returned when asked to rip a track that holds no audio.
var ErrDataTrack = errors.New("rip: not an audio track")

// Options controls how a track is read.
type Options struct {
	Mode cdparanoia.Mode
	// MaxRetries is the number of repeated reads of a failing sector,
	// cdparanoia.DefaultMaxRetries if zero.
	MaxRetries int
	// Overlap fixes the overlap search in sectors. Zero leaves the
	// library's dynamic overlap in place.
	Overlap int
	// ProgressEvery is the number of sectors between progress log lines,
	// zero for none.
	ProgressEvery int64

	Logger  zerolog.Logger
	Metrics *Metrics
}

// DefaultOptions uses full paranoia and logs progress every ten seconds
// of audio.
func DefaultOptions() Options {
	return Options{
		Mode:          cdparanoia.ModeFull,
		MaxRetries:    cdparanoia.DefaultMaxRetries,
		ProgressEvery: 10 * cdparanoia.SectorsPerSecond,
		Logger:        zerolog.Nop(),
	}
}

func (o Options) apply(r *cdparanoia.Reader) error {
	if err := r.SetMode(o.Mode); err != nil {
		return err
	}
	retries := o.MaxRetries
	if retries == 0 {
		retries = cdparanoia.DefaultMaxRetries
	}
	if err := r.SetMaxRetries(retries); err != nil {
		return err
	}
	if o.Overlap > 0 {
		return r.SetOverlap(o.Overlap)
	}
	return nil
}

// Result describes a ripped track.
type Result struct {
	Track   cdparanoia.Track
	Sectors int64
	// Bytes is the amount of PCM data written, without the WAV header.
	Bytes   int64
	Events  map[cdparanoia.EventType]int
	Elapsed time.Duration
}

// Speed returns how many times faster than real-time playback the track
// was read.
func (res Result) Speed() float64 {
	if res.Elapsed <= 0 {
		return 0
	}
	audio := float64(res.Sectors) / cdparanoia.SectorsPerSecond
	return audio / res.Elapsed.Seconds()
}

// Corrections returns the number of events where the library had to fix
// up the data it read.
func (res Result) Corrections() int {
	n := 0
	for typ, count := range res.Events {
		switch typ {
		case cdparanoia.EventFixupEdge, cdparanoia.EventFixupAtom, cdparanoia.EventRepair,
			cdparanoia.EventFixupDropped, cdparanoia.EventFixupDuped, cdparanoia.EventScratch:
			n += count
		}
	}
	return n
}

// Track reads track n through r and writes it to w as a WAV file. w is left
// open. On error the WAV header is still finalized to match the data that
// made it into w.
func Track(ctx context.Context, r *cdparanoia.Reader, n int, w io.WriteSeeker, opts Options) (res Result, err error) {
	t, err := r.Drive().Track(n)
	if err != nil {
		return res, fmt.Errorf("rip: track %d: %w", n, err)
	}
	res.Track = t
	if !t.Audio {
		return res, fmt.Errorf("rip: track %d: %w", n, ErrDataTrack)
	}
	logger := opts.Logger.With().Int("track", n).Logger()

	if err := opts.apply(r); err != nil {
		return res, fmt.Errorf("rip: track %d: %w", n, err)
	}
	res.Events = make(map[cdparanoia.EventType]int)
	r.OnEvent(func(ev cdparanoia.Event) {
		res.Events[ev.Type]++
		opts.Metrics.event(ev)
		switch ev.Type {
		case cdparanoia.EventSkip, cdparanoia.EventReadErr, cdparanoia.EventScratch:
			logger.Debug().Str("event", ev.Type.String()).Int64("sector", int64(ev.Sector())).Msg("paranoia")
		}
	})
	defer r.OnEvent(nil)

	if err := r.SeekTrack(n); err != nil {
		return res, fmt.Errorf("rip: track %d: %w", n, err)
	}

	ww, err := wav.NewWriter(w, wav.CDDA, t.LengthBytes())
	if err != nil {
		return res, fmt.Errorf("rip: track %d: %w", n, err)
	}
	defer func() {
		res.Bytes = ww.Written()
		if cerr := ww.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("rip: track %d: %w", n, cerr)
		}
	}()

	start := time.Now()
	total := t.LengthSectors()
	logger.Info().
		Int64("sectors", total).
		Str("mode", r.Mode().String()).
		Msg("ripping track")

	for {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("rip: track %d: %w", n, err)
		}
		s, err := r.ReadSector()
		if errors.Is(err, cdparanoia.ErrEndOfDisc) {
			break
		}
		if err != nil {
			opts.Metrics.readFailed(err)
			logger.Error().Err(err).Int64("sector", int64(r.Cursor())).Msg("read failed")
			return res, fmt.Errorf("rip: track %d: %w", n, err)
		}
		le := s.LittleEndian()
		if _, err := ww.Write(le[:]); err != nil {
			return res, fmt.Errorf("rip: track %d: %w", n, err)
		}
		res.Sectors++
		opts.Metrics.sectorRead()
		if opts.ProgressEvery > 0 && res.Sectors%opts.ProgressEvery == 0 {
			logger.Debug().
				Int64("done", res.Sectors).
				Int64("total", total).
				Msg("progress")
		}
	}

	res.Elapsed = time.Since(start)
	opts.Metrics.trackDone(res.Elapsed.Seconds())
	logger.Info().
		Int64("sectors", res.Sectors).
		Dur("elapsed", res.Elapsed).
		Int("corrections", res.Corrections()).
		Msg("track ripped")
	return res, nil
}
