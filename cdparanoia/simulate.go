package cdparanoia

import (
	"crypto/rand"
	"errors"
)

// SimulatedDisc describes the disc in a simulated drive, see
// [OpenSimulated].
type SimulatedDisc struct {
	// TrackSectors holds the length of each track. Tracks are laid out
	// back to back starting at sector 0.
	TrackSectors []int64
	// DataTracks lists the numbers of tracks that do not hold audio.
	DataTracks []int
	// Data returns the content of a sector. If nil, sectors are white
	// noise.
	Data func(sector SectorAddress) Sector
	// Fail makes reads of the given sectors fail with ErrDriveIO or
	// ErrUnrecoverableRead.
	Fail map[SectorAddress]error
}

// DefaultSimulatedDisc is ten tracks of three minutes each.
func DefaultSimulatedDisc() SimulatedDisc {
	lengths := make([]int64, 10)
	for i := range lengths {
		lengths[i] = SectorsPerSecond * 3 * 60
	}
	return SimulatedDisc{TrackSectors: lengths}
}

// OpenSimulated opens a drive that serves disc from memory instead of
// hardware. It behaves like a real drive, including the error mapping,
// which makes it useful for testing code built on this package.
func OpenSimulated(disc SimulatedDisc, opts ...Option) (*Drive, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return open("simulated", &simDrive{disc: disc}, "", o)
}

type simDrive struct {
	disc SimulatedDisc
}

func (d *simDrive) open() int                    { return 0 }
func (d *simDrive) close()                       {}
func (d *simDrive) model() string                { return "Simulated cdparanoia drive" }
func (d *simDrive) driveType() DriveType         { return SCSI_CDROM_MAJOR }
func (d *simDrive) interfaceType() InterfaceType { return TEST_INTERFACE }
func (d *simDrive) tracks() int                  { return len(d.disc.TrackSectors) }
func (d *simDrive) setSpeed(speed int) int       { return 0 }
func (d *simDrive) messages() string             { return "" }
func (d *simDrive) errors() string               { return "" }

func (d *simDrive) trackFirstSector(track int) int64 {
	if track < 1 || track > len(d.disc.TrackSectors) {
		return -int64(CodeInvalidTrackNumber)
	}
	var pos int64
	for _, l := range d.disc.TrackSectors[:track-1] {
		pos += l
	}
	return pos
}

func (d *simDrive) trackLastSector(track int) int64 {
	first := d.trackFirstSector(track)
	if first < 0 {
		return first
	}
	return first + d.disc.TrackSectors[track-1] - 1
}

func (d *simDrive) trackAudio(track int) int {
	if track < 1 || track > len(d.disc.TrackSectors) {
		return -int(CodeInvalidTrackNumber)
	}
	for _, n := range d.disc.DataTracks {
		if n == track {
			return 0
		}
	}
	return 1
}

func (d *simDrive) trackCopyPermitted(track int) int { return 0 }
func (d *simDrive) trackPreEmphasis(track int) int   { return 0 }
func (d *simDrive) trackChannels(track int) int      { return Channels }

func (d *simDrive) paranoiaInit() nativeParanoia {
	return &simParanoia{disc: &d.disc}
}

type simParanoia struct {
	disc   *SimulatedDisc
	cursor int64
}

func (p *simParanoia) modeSet(mode Mode)      {}
func (p *simParanoia) overlapSet(sectors int) {}
func (p *simParanoia) free()                  {}

func (p *simParanoia) seek(sector int64) int64 {
	prev := p.cursor
	p.cursor = sector
	return prev
}

func (p *simParanoia) read(maxRetries int) ([]byte, []Event) {
	sector := SectorAddress(p.cursor)
	offset := p.cursor * SamplesPerSector
	events := []Event{{Type: EventRead, Offset: offset}}

	fail := p.disc.Fail[sector]
	if errors.Is(fail, ErrDriveIO) {
		return nil, append(events, Event{Type: EventReadErr, Offset: offset})
	}

	var data Sector
	if p.disc.Data != nil {
		data = p.disc.Data(sector)
	} else if _, err := rand.Read(data[:]); err != nil {
		return nil, events
	}
	p.cursor++

	if errors.Is(fail, ErrUnrecoverableRead) {
		events = append(events, Event{Type: EventSkip, Offset: offset})
	} else {
		events = append(events, Event{Type: EventVerify, Offset: offset})
	}
	return data[:], events
}
