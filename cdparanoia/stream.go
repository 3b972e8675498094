package cdparanoia

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// TrackStream is an [io.ReadSeeker] over the PCM data of one track. It
// reads whole sectors from its [Reader] and buffers them, so reads and
// seeks may use any byte offset.
//
// The stream drives the reader's cursor; the reader must not be used
// directly while the stream is in use.
type TrackStream struct {
	r     *Reader
	track Track
	size  int64

	pos    int64 // offset of the next byte returned by Read
	bufEnd int64 // offset just past the last buffered byte
	buf    bytes.Buffer
	stale  bool // the reader cursor does not match pos after a failed seek
}

var _ io.ReadSeeker = (*TrackStream)(nil)

// OpenTrack positions the reader at track n and returns a stream over it.
func (r *Reader) OpenTrack(n int) (*TrackStream, error) {
	if err := r.SeekTrack(n); err != nil {
		return nil, err
	}
	t, err := r.drive.Track(n)
	if err != nil {
		return nil, err
	}
	return &TrackStream{r: r, track: t, size: t.LengthBytes()}, nil
}

// Track returns the table of contents entry of the streamed track.
func (s *TrackStream) Track() Track {
	return s.track
}

// Size returns the number of bytes in the track.
func (s *TrackStream) Size() int64 {
	return s.size
}

// Read reads PCM data in host byte order. It returns [io.EOF] at the end
// of the track.
func (s *TrackStream) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	for n < len(p) {
		// if there's data available in the buffer, return that first
		if s.buf.Len() > 0 {
			k := copy(p[n:], s.buf.Next(len(p)-n))
			n += k
			s.pos += int64(k)
			continue
		}
		if s.pos >= s.size {
			if n > 0 {
				return n, nil
			}
			return 0, io.EOF
		}
		if s.stale {
			if err := s.reposition(s.pos); err != nil {
				return n, err
			}
			continue
		}
		if err := s.fill(); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (s *TrackStream) fill() error {
	sector, err := s.r.ReadSector()
	if errors.Is(err, ErrEndOfDisc) {
		return io.ErrUnexpectedEOF
	}
	if err != nil {
		return err
	}
	s.buf.Write(sector[:])
	s.bufEnd += BytesPerSector
	return nil
}

// Seek sets the offset for the next Read. Offsets outside the track are
// rejected.
func (s *TrackStream) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = s.pos + offset
	case io.SeekEnd:
		target = s.size + offset
	default:
		return s.pos, fmt.Errorf("cdparanoia: invalid whence %d", whence)
	}
	if target < 0 || target > s.size {
		return s.pos, fmt.Errorf("cdparanoia: seek to %d outside track of %d bytes", target, s.size)
	}

	if target == s.pos {
		return s.pos, nil
	}

	// can use data already in buffer
	if target > s.pos && target <= s.bufEnd {
		_ = s.buf.Next(int(target - s.pos))
		s.pos = target
		return s.pos, nil
	}

	err := s.reposition(target)
	return s.pos, err
}

// reposition wipes the buffer and moves the reader to the sector holding
// target. If that fails the offset stays where it was and the next Read
// retries the move.
func (s *TrackStream) reposition(target int64) error {
	s.buf.Reset()
	s.bufEnd = s.pos
	if target == s.size {
		s.pos, s.bufEnd = target, target
		s.stale = false
		return nil
	}
	sectorOffset := target - target%BytesPerSector
	if err := s.r.Seek(s.track.FirstSector + SectorAddress(sectorOffset/BytesPerSector)); err != nil {
		s.stale = true
		return err
	}
	s.bufEnd = sectorOffset
	if err := s.fill(); err != nil {
		s.buf.Reset()
		s.bufEnd = s.pos
		s.stale = true
		return err
	}
	// advance into the sector
	_ = s.buf.Next(int(target - sectorOffset))
	s.pos = target
	s.stale = false
	return nil
}
