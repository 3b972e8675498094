package cdparanoia

import (
	"fmt"
)

// State is the position of a [Reader] in its read cycle.
type State int

const (
	// StateUnpositioned is the initial state; the reader must be seeked
	// before it can read.
	StateUnpositioned State = iota
	// StatePositioned means the next read returns the sector at the cursor.
	StatePositioned
	// StateExhausted means the cursor passed the last sector of the track
	// it was seeked into. Sticky until the next seek.
	StateExhausted
	// StateFailed means the last seek or read failed. Sticky until the next
	// seek; reads return the same error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnpositioned:
		return "unpositioned"
	case StatePositioned:
		return "positioned"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Reader reads sectors from a [Drive] through the paranoia error
// correction layer. It borrows the drive: closing the drive releases the
// reader, after which every call fails with [ErrClosed].
type Reader struct {
	drive  *Drive
	native nativeParanoia // nil once released

	mode       Mode
	maxRetries int
	onEvent    func(Event)

	state   State
	cursor  SectorAddress
	limit   SectorAddress // last sector of the track containing the seek target
	failure error
}

// NewReader creates a reader bound to d, with [ModeFull] error correction
// and [DefaultMaxRetries] retries per sector.
func NewReader(d *Drive) (*Reader, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.native == nil {
		return nil, d.closedError("new reader")
	}
	np := d.native.paranoiaInit()
	d.flushLogs()
	if np == nil {
		return nil, &DriveError{Op: "new reader", Device: d.device, Kind: ErrOpenFailed, Code: CodeKernelMemory}
	}
	np.modeSet(ModeFull)

	r := &Reader{
		drive:      d,
		native:     np,
		mode:       ModeFull,
		maxRetries: DefaultMaxRetries,
	}
	d.readers[r] = struct{}{}
	d.logger.Debug().Int("readers", len(d.readers)).Msg("reader created")
	return r, nil
}

// Drive returns the drive the reader is bound to.
func (r *Reader) Drive() *Drive {
	return r.drive
}

// release frees the native context. drive.mu must be held.
func (r *Reader) release() {
	if r.native == nil {
		return
	}
	r.native.free()
	r.native = nil
}

// Close releases the reader. The drive stays open. Close is safe to call
// more than once, also after the drive was closed.
func (r *Reader) Close() error {
	r.drive.mu.Lock()
	defer r.drive.mu.Unlock()
	if r.native == nil {
		return nil
	}
	r.release()
	delete(r.drive.readers, r)
	return nil
}

func (r *Reader) checkOpen(op string) error {
	if r.native == nil || r.drive.native == nil {
		return &ReadError{Op: op, Sector: r.cursor, Kind: ErrClosed}
	}
	return nil
}

// SetMode sets the error correction features for subsequent reads.
func (r *Reader) SetMode(m Mode) error {
	r.drive.mu.Lock()
	defer r.drive.mu.Unlock()
	if err := r.checkOpen("set mode"); err != nil {
		return err
	}
	r.native.modeSet(m)
	r.mode = m
	return nil
}

// Mode returns the error correction features in effect.
func (r *Reader) Mode() Mode {
	r.drive.mu.Lock()
	defer r.drive.mu.Unlock()
	return r.mode
}

// SetMaxRetries sets how often the library re-reads a sector that fails
// verification before skipping it.
func (r *Reader) SetMaxRetries(n int) error {
	if n < 1 {
		return fmt.Errorf("cdparanoia: max retries must be positive, got %d", n)
	}
	r.drive.mu.Lock()
	defer r.drive.mu.Unlock()
	if err := r.checkOpen("set max retries"); err != nil {
		return err
	}
	r.maxRetries = n
	return nil
}

// SetOverlap forces the overlap search to the given number of sectors
// instead of the library's dynamic adjustment.
func (r *Reader) SetOverlap(sectors int) error {
	if sectors < 0 || sectors > MaxOverlap {
		return fmt.Errorf("cdparanoia: overlap must be within 0..%d sectors, got %d", MaxOverlap, sectors)
	}
	r.drive.mu.Lock()
	defer r.drive.mu.Unlock()
	if err := r.checkOpen("set overlap"); err != nil {
		return err
	}
	r.native.overlapSet(sectors)
	return nil
}

// OnEvent registers fn to receive the progress callbacks the library
// issues during reads. fn runs on the reading goroutine after the read
// completes and must not call back into the reader. Pass nil to stop.
func (r *Reader) OnEvent(fn func(Event)) {
	r.drive.mu.Lock()
	defer r.drive.mu.Unlock()
	r.onEvent = fn
}

// Cursor returns the sector the next read returns.
func (r *Reader) Cursor() SectorAddress {
	r.drive.mu.Lock()
	defer r.drive.mu.Unlock()
	return r.cursor
}

// State returns the reader's position in its read cycle.
func (r *Reader) State() State {
	r.drive.mu.Lock()
	defer r.drive.mu.Unlock()
	return r.state
}

func (r *Reader) fail(err error) error {
	r.state = StateFailed
	r.failure = err
	return err
}

// Seek positions the reader at sector, which must lie inside an audio
// track. Reads then continue up to the last sector of that track.
// Seek restarts a reader that is exhausted or failed.
func (r *Reader) Seek(sector SectorAddress) error {
	r.drive.mu.Lock()
	defer r.drive.mu.Unlock()
	if err := r.checkOpen("seek"); err != nil {
		return err
	}
	return r.seek(sector)
}

// SeekTrack positions the reader at the first sector of track n.
func (r *Reader) SeekTrack(n int) error {
	r.drive.mu.Lock()
	defer r.drive.mu.Unlock()
	if err := r.checkOpen("seek"); err != nil {
		return err
	}
	t, err := r.drive.track("seek track", n)
	if err != nil {
		return r.fail(err)
	}
	if !t.Audio {
		return r.fail(&ReadError{Op: "seek", Sector: t.FirstSector, Kind: ErrSeekOutOfRange, Detail: fmt.Sprintf("track %d is a data track", n)})
	}
	return r.seek(t.FirstSector)
}

func (r *Reader) seek(sector SectorAddress) error {
	t, ok := r.drive.audioTrackAt(sector)
	if !ok {
		return r.fail(&ReadError{Op: "seek", Sector: sector, Kind: ErrSeekOutOfRange})
	}
	// paranoia_seek returns the previous cursor, or a negative value if the
	// target lies outside the disc.
	ret := r.native.seek(int64(sector))
	detail := r.drive.flushLogs()
	if ret < 0 {
		if detail == "" {
			detail = fmt.Sprintf("library refused seek with %d", ret)
		}
		return r.fail(&ReadError{Op: "seek", Sector: sector, Kind: ErrSeekOutOfRange, Detail: detail})
	}
	r.cursor = sector
	r.limit = t.LastSector
	r.state = StatePositioned
	r.failure = nil
	return nil
}

// ReadSector reads the sector at the cursor and advances the cursor by
// one. It blocks for the full device access, including the library's
// retries.
//
// ReadSector returns [ErrEndOfDisc] once the cursor has passed the end of
// the track, [ErrUnrecoverableRead] if the library had to skip the sector,
// and [ErrDriveIO] if the drive returned no data. After an error the
// reader keeps returning it until the next seek.
func (r *Reader) ReadSector() (Sector, error) {
	r.drive.mu.Lock()
	s, events, err := r.readSector()
	fn := r.onEvent
	r.drive.mu.Unlock()

	if fn != nil {
		for _, ev := range events {
			fn(ev)
		}
	}
	return s, err
}

func (r *Reader) readSector() (Sector, []Event, error) {
	if err := r.checkOpen("read"); err != nil {
		return Sector{}, nil, err
	}
	switch r.state {
	case StateUnpositioned:
		return Sector{}, nil, &ReadError{Op: "read", Sector: r.cursor, Kind: ErrNotPositioned}
	case StateExhausted:
		return Sector{}, nil, &ReadError{Op: "read", Sector: r.cursor, Kind: ErrEndOfDisc}
	case StateFailed:
		return Sector{}, nil, r.failure
	}
	if r.cursor > r.limit {
		r.state = StateExhausted
		return Sector{}, nil, &ReadError{Op: "read", Sector: r.cursor, Kind: ErrEndOfDisc}
	}

	data, events := r.native.read(r.maxRetries)
	detail := r.drive.flushLogs()
	if data == nil {
		return Sector{}, events, r.fail(&ReadError{Op: "read", Sector: r.cursor, Kind: ErrDriveIO, Detail: detail})
	}
	if len(data) != BytesPerSector {
		return Sector{}, events, r.fail(&ReadError{Op: "read", Sector: r.cursor, Kind: ErrDriveIO,
			Detail: fmt.Sprintf("library returned %d bytes", len(data))})
	}
	for _, ev := range events {
		if ev.Type == EventSkip {
			return Sector{}, events, r.fail(&ReadError{Op: "read", Sector: r.cursor, Kind: ErrUnrecoverableRead, Detail: detail})
		}
	}

	var s Sector
	copy(s[:], data)
	r.cursor++
	return s, events, nil
}
