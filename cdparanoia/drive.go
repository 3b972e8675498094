package cdparanoia

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Drive is an opened cd drive and the table of contents of the disc in
// it. A Drive is created with [Open] and must be released with
// [Drive.Close]. It must outlive every [Reader] created from it; closing
// it releases those readers first.
//
// A Drive and its readers are not meant for concurrent use. Calls are
// serialized internally, so misuse degrades to serialization rather than
// to corrupted native state.
type Drive struct {
	mu      sync.Mutex
	native  nativeDrive // nil once closed
	readers map[*Reader]struct{}

	device        string
	model         string
	driveType     DriveType
	interfaceType InterfaceType
	tracks        []Track

	logMode LogMode
	logger  zerolog.Logger
}

// Open determines the properties of the drive and reads the table of
// contents of the disc. If device is empty the first cd drive found is
// used.
//
// Open returns a [*DriveError] matching [ErrNotFound] if no drive exists,
// [ErrOpenFailed] if the drive could not be opened, or [ErrNoDisc] if there
// is no medium or no audio on it. Nothing stays allocated on failure.
//
// Open does not refer to controlling the drive tray.
func Open(device string, opts ...Option) (*Drive, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	nd, msgs := identify(device, o.logMode)
	if nd == nil {
		if o.logMode == LogModeLogger {
			forwardLines(driveLogger(o.logger, device), zerolog.DebugLevel, msgs)
		}
		return nil, &DriveError{Op: "open", Device: device, Kind: missingDriveKind(device, msgs)}
	}
	return open(device, nd, msgs, o)
}

func driveLogger(logger zerolog.Logger, device string) zerolog.Logger {
	if device == "" {
		device = "default"
	}
	return logger.With().Str("device", device).Logger()
}

// open completes opening an identified drive.
func open(device string, nd nativeDrive, msgs string, o *openOptions) (*Drive, error) {
	logger := driveLogger(o.logger, device)
	if o.logMode == LogModeLogger {
		forwardLines(logger, zerolog.DebugLevel, msgs)
	}

	d := &Drive{
		native:  nd,
		readers: make(map[*Reader]struct{}),
		device:  device,
		logMode: o.logMode,
		logger:  logger,
	}
	code := statusCode(nd.open())
	d.flushLogs()
	if code != 0 {
		nd.close()
		return nil, &DriveError{Op: "open", Device: device, Kind: driveKind(code), Code: code}
	}

	if err := d.readTOC(); err != nil {
		nd.close()
		return nil, err
	}
	d.model = strings.TrimSpace(nd.model())
	d.driveType = nd.driveType()
	d.interfaceType = nd.interfaceType()

	if o.setSpeed {
		if err := d.SetSpeed(o.speed); err != nil {
			logger.Warn().Err(err).Int("speed", o.speed).Msg("unable to set drive speed")
		}
	}

	logger.Debug().
		Str("model", d.model).
		Int("tracks", len(d.tracks)).
		Msg("drive opened")
	return d, nil
}

// openFailureMarkers appear in the identify messages when a drive exists
// but could not be opened.
var openFailureMarkers = []string{
	"permission denied",
	"unable to open",
	"can not open",
	"cannot open",
	"could not open",
}

func missingDriveKind(device, msgs string) error {
	if device == "" {
		// the library scanned its candidate devices; only the messages
		// tell a locked drive apart from no drive at all
		lower := strings.ToLower(msgs)
		for _, m := range openFailureMarkers {
			if strings.Contains(lower, m) {
				return ErrOpenFailed
			}
		}
		return ErrNotFound
	}
	if _, err := os.Stat(device); errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return ErrOpenFailed
}

func statusCode(ret int) Code {
	if ret < 0 {
		ret = -ret
	}
	return Code(ret)
}

func (d *Drive) readTOC() error {
	nd := d.native
	n := nd.tracks()
	if n <= 0 {
		code := codeFromReturn(int64(n))
		if code == 0 {
			code = CodeNoAudioTracks
		}
		return &DriveError{Op: "read toc", Device: d.device, Kind: ErrNoDisc, Code: code}
	}

	tracks := make([]Track, n)
	audio := 0
	for i := range tracks {
		num := i + 1
		first := nd.trackFirstSector(num)
		last := nd.trackLastSector(num)
		if code := codeFromReturn(min(first, last)); code != 0 {
			return &DriveError{Op: "read toc", Device: d.device, Track: num, Kind: driveKind(code), Code: code}
		}
		if last < first {
			return &DriveError{Op: "read toc", Device: d.device, Track: num, Kind: ErrNoDisc, Code: CodeIllegalTOC}
		}
		channels := nd.trackChannels(num)
		if channels <= 0 {
			channels = Channels
		}
		tracks[i] = Track{
			Number:        num,
			FirstSector:   SectorAddress(first),
			LastSector:    SectorAddress(last),
			Audio:         nd.trackAudio(num) > 0,
			CopyPermitted: nd.trackCopyPermitted(num) > 0,
			PreEmphasis:   nd.trackPreEmphasis(num) > 0,
			NumChannels:   channels,
		}
		if tracks[i].Audio {
			audio++
		}
	}
	if audio == 0 {
		return &DriveError{Op: "read toc", Device: d.device, Kind: ErrNoDisc, Code: CodeNoAudioTracks}
	}
	d.tracks = tracks
	return nil
}

func (d *Drive) closedError(op string) error {
	return &DriveError{Op: op, Device: d.device, Kind: ErrClosed}
}

// Device returns the device path the drive was opened with, empty for
// the default device.
func (d *Drive) Device() string {
	return d.device
}

// Model returns information about the cd drive's manufacturer and model number.
func (d *Drive) Model() string {
	return d.model
}

// DriveType returns the major device number of the drive.
func (d *Drive) DriveType() DriveType {
	return d.driveType
}

// InterfaceType returns the kernel interface used to talk to the drive.
func (d *Drive) InterfaceType() InterfaceType {
	return d.interfaceType
}

// IsOpen reports whether the drive has not been closed yet.
//
// IsOpen does not refer to the state of the drive tray.
func (d *Drive) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.native != nil
}

// TrackCount returns number of tracks on the disc, or 0 once the drive is
// closed. The CD-DA format supports a maximum of 99 tracks.
func (d *Drive) TrackCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.native == nil {
		return 0
	}
	return len(d.tracks)
}

// Track returns the table of contents entry for track n, counting from 1.
func (d *Drive) Track(n int) (Track, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.track("track", n)
}

func (d *Drive) track(op string, n int) (Track, error) {
	if d.native == nil {
		return Track{}, d.closedError(op)
	}
	if n < 1 || n > len(d.tracks) {
		return Track{}, &DriveError{Op: op, Device: d.device, Track: n, Kind: ErrInvalidTrack}
	}
	return d.tracks[n-1], nil
}

// Tracks returns the table of contents.
func (d *Drive) Tracks() []Track {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.native == nil {
		return nil
	}
	return append([]Track(nil), d.tracks...)
}

// FirstSector returns the first sector of track n.
func (d *Drive) FirstSector(n int) (SectorAddress, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.track("first sector", n)
	return t.FirstSector, err
}

// LastSector returns the last sector of track n, inclusive.
func (d *Drive) LastSector(n int) (SectorAddress, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.track("last sector", n)
	return t.LastSector, err
}

// FirstAudioTrack returns the number of the first audio track, or 0 if the
// drive is closed.
func (d *Drive) FirstAudioTrack() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.native == nil {
		return 0
	}
	for _, t := range d.tracks {
		if t.Audio {
			return t.Number
		}
	}
	return 0
}

// LastAudioTrack returns the number of the last audio track, or 0 if the
// drive is closed.
func (d *Drive) LastAudioTrack() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.native == nil {
		return 0
	}
	for i := len(d.tracks) - 1; i >= 0; i-- {
		if d.tracks[i].Audio {
			return d.tracks[i].Number
		}
	}
	return 0
}

// AudioRegion returns the first sector of the first audio track and the
// last sector of the last audio track.
func (d *Drive) AudioRegion() (first, last SectorAddress, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.native == nil {
		return 0, 0, d.closedError("audio region")
	}
	first, last = -1, -1
	for _, t := range d.tracks {
		if !t.Audio {
			continue
		}
		if first < 0 {
			first = t.FirstSector
		}
		last = t.LastSector
	}
	return first, last, nil
}

// DiscFirstSector returns the first sector of the first audio track.
func (d *Drive) DiscFirstSector() (SectorAddress, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.native == nil {
		return 0, d.closedError("disc first sector")
	}
	for _, t := range d.tracks {
		if t.Audio {
			return t.FirstSector, nil
		}
	}
	return 0, &DriveError{Op: "disc first sector", Device: d.device, Kind: ErrNoDisc, Code: CodeNoAudioTracks}
}

// TrackAt returns the number of the track containing sector.
func (d *Drive) TrackAt(sector SectorAddress) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.native == nil {
		return 0, d.closedError("sector track")
	}
	if t, ok := d.audioTrackAt(sector); ok {
		return t.Number, nil
	}
	for _, t := range d.tracks {
		if t.ContainsSector(sector) {
			return t.Number, nil
		}
	}
	return 0, &DriveError{Op: "sector track", Device: d.device, Kind: ErrInvalidTrack}
}

func (d *Drive) audioTrackAt(sector SectorAddress) (Track, bool) {
	for _, t := range d.tracks {
		if t.Audio && t.ContainsSector(sector) {
			return t, true
		}
	}
	return Track{}, false
}

// SetSpeed sets the data read speed multiplier.
// 1x reads at real-time audio speed, 75 sectors/second.
// Use [FullSpeed] to read as fast as possible.
func (d *Drive) SetSpeed(x int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.native == nil {
		return d.closedError("set speed")
	}
	code := statusCode(d.native.setSpeed(x))
	d.flushLogs()
	if code != 0 {
		return fmt.Errorf("cdparanoia: set speed %d: %w", x, code)
	}
	return nil
}

// NewReader creates a paranoia reader bound to this drive.
func (d *Drive) NewReader() (*Reader, error) {
	return NewReader(d)
}

// Close releases access to the cd drive. Readers still bound to it are
// released first and fail with [ErrClosed] afterwards. Close is safe to
// call more than once.
//
// Close does not refer to controlling the drive tray.
func (d *Drive) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.native == nil {
		return nil
	}
	if n := len(d.readers); n > 0 {
		d.logger.Debug().Int("readers", n).Msg("releasing readers still bound to drive")
	}
	for r := range d.readers {
		r.release()
	}
	d.readers = nil
	d.native.close()
	d.native = nil
	d.logger.Debug().Msg("drive closed")
	return nil
}

// flushLogs drains the library's message buffers, forwarding them to the
// logger in LogModeLogger, and returns the error text. d.mu must be held.
func (d *Drive) flushLogs() string {
	if d.native == nil {
		return ""
	}
	errs := d.native.errors()
	msgs := d.native.messages()
	if d.logMode == LogModeLogger {
		forwardLines(d.logger, zerolog.WarnLevel, errs)
		forwardLines(d.logger, zerolog.DebugLevel, msgs)
	}
	return strings.TrimSpace(errs)
}

func forwardLines(logger zerolog.Logger, level zerolog.Level, text string) {
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		logger.WithLevel(level).Str("source", "libcdparanoia").Msg(line)
	}
}
