package cdparanoia

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeDrive is a scriptable nativeDrive. Tracks are laid out back to back
// starting at sector 0.
type fakeDrive struct {
	firsts, lasts []int64
	data          map[int]bool // track numbers that are data tracks

	identifyMissing bool
	identifyText    string
	openRet         int
	tracksRet       *int
	speedRet        int
	speeds          []int
	closeCalls      int

	// pending log text, drained by errors and messages
	errText, msgText string

	// per sector failure: "io" returns no data, "skip" reports EventSkip
	failRead map[int64]string
	// text logged as an error when a read fails
	failText string

	contexts []*fakeParanoia
	lastMode LogMode
}

func newFakeDrive(lengths ...int64) *fakeDrive {
	fd := &fakeDrive{
		data:     make(map[int]bool),
		failRead: make(map[int64]string),
	}
	var pos int64
	for _, l := range lengths {
		fd.firsts = append(fd.firsts, pos)
		fd.lasts = append(fd.lasts, pos+l-1)
		pos += l
	}
	return fd
}

// fakeSectorData is the content of sector s on every fake disc.
func fakeSectorData(s int64) []byte {
	b := make([]byte, BytesPerSector)
	for i := range b {
		b[i] = byte(s*7 + int64(i))
	}
	return b
}

func (fd *fakeDrive) validTrack(track int) bool {
	return track >= 1 && track <= len(fd.firsts)
}

func (fd *fakeDrive) open() int                    { return fd.openRet }
func (fd *fakeDrive) close()                       { fd.closeCalls++ }
func (fd *fakeDrive) model() string                { return "FAKE CDROM 1.0 " }
func (fd *fakeDrive) driveType() DriveType         { return SCSI_CDROM_MAJOR }
func (fd *fakeDrive) interfaceType() InterfaceType { return SGIO_SCSI }

func (fd *fakeDrive) tracks() int {
	if fd.tracksRet != nil {
		return *fd.tracksRet
	}
	return len(fd.firsts)
}

func (fd *fakeDrive) trackFirstSector(track int) int64 {
	if !fd.validTrack(track) {
		return -int64(CodeInvalidTrackNumber)
	}
	return fd.firsts[track-1]
}

func (fd *fakeDrive) trackLastSector(track int) int64 {
	if !fd.validTrack(track) {
		return -int64(CodeInvalidTrackNumber)
	}
	return fd.lasts[track-1]
}

func (fd *fakeDrive) trackAudio(track int) int {
	if !fd.validTrack(track) {
		return -int(CodeInvalidTrackNumber)
	}
	if fd.data[track] {
		return 0
	}
	return 1
}

func (fd *fakeDrive) trackCopyPermitted(track int) int { return track % 2 }
func (fd *fakeDrive) trackPreEmphasis(track int) int   { return 0 }
func (fd *fakeDrive) trackChannels(track int) int      { return 2 }

func (fd *fakeDrive) setSpeed(speed int) int {
	fd.speeds = append(fd.speeds, speed)
	return fd.speedRet
}

func (fd *fakeDrive) messages() string {
	s := fd.msgText
	fd.msgText = ""
	return s
}

func (fd *fakeDrive) errors() string {
	s := fd.errText
	fd.errText = ""
	return s
}

func (fd *fakeDrive) paranoiaInit() nativeParanoia {
	p := &fakeParanoia{drive: fd, overlap: -1}
	fd.contexts = append(fd.contexts, p)
	return p
}

type fakeParanoia struct {
	drive     *fakeDrive
	cursor    int64
	mode      Mode
	overlap   int
	retries   []int
	reads     int
	freeCalls int
	seekRet   *int64
}

func (p *fakeParanoia) checkLive() {
	if p.freeCalls > 0 {
		panic("fake paranoia context used after free")
	}
}

func (p *fakeParanoia) modeSet(mode Mode) {
	p.checkLive()
	p.mode = mode
}

func (p *fakeParanoia) overlapSet(sectors int) {
	p.checkLive()
	p.overlap = sectors
}

func (p *fakeParanoia) seek(sector int64) int64 {
	p.checkLive()
	if p.seekRet != nil {
		return *p.seekRet
	}
	prev := p.cursor
	p.cursor = sector
	return prev
}

func (p *fakeParanoia) read(maxRetries int) ([]byte, []Event) {
	p.checkLive()
	p.reads++
	p.retries = append(p.retries, maxRetries)
	offset := p.cursor * SamplesPerSector
	switch p.drive.failRead[p.cursor] {
	case "io":
		p.drive.errText = p.drive.failText
		return nil, []Event{{Type: EventReadErr, Offset: offset}}
	case "skip":
		p.drive.errText = p.drive.failText
		data := fakeSectorData(p.cursor)
		p.cursor++
		return data, []Event{{Type: EventRead, Offset: offset}, {Type: EventSkip, Offset: offset}}
	}
	data := fakeSectorData(p.cursor)
	p.cursor++
	return data, []Event{{Type: EventRead, Offset: offset}, {Type: EventVerify, Offset: offset}}
}

func (p *fakeParanoia) free() {
	p.freeCalls++
}

// useFakeDrive makes identify return fd for the duration of the test.
func useFakeDrive(t *testing.T, fd *fakeDrive) {
	t.Helper()
	orig := identify
	identify = func(device string, lm LogMode) (nativeDrive, string) {
		fd.lastMode = lm
		if fd.identifyMissing {
			return nil, fd.identifyText
		}
		return fd, fd.identifyText
	}
	t.Cleanup(func() { identify = orig })
}

// openFake opens a drive backed by fd and closes it when the test ends.
func openFake(t *testing.T, fd *fakeDrive, opts ...Option) *Drive {
	t.Helper()
	useFakeDrive(t, fd)
	d, err := Open("/dev/fake", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}
