package cdparanoia

import (
	"bytes"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenReadsTOC(t *testing.T) {
	fd := newFakeDrive(100, 200, 50)
	d := openFake(t, fd)

	assert.Equal(t, "/dev/fake", d.Device())
	assert.Equal(t, "FAKE CDROM 1.0", d.Model())
	assert.Equal(t, SCSI_CDROM_MAJOR, d.DriveType())
	assert.Equal(t, SGIO_SCSI, d.InterfaceType())
	assert.True(t, d.IsOpen())

	assert.Equal(t, 3, d.TrackCount())
	assert.Equal(t, 1, d.FirstAudioTrack())
	assert.Equal(t, 3, d.LastAudioTrack())

	for n := 1; n <= d.TrackCount(); n++ {
		first, err := d.FirstSector(n)
		require.NoError(t, err)
		last, err := d.LastSector(n)
		require.NoError(t, err)
		assert.LessOrEqual(t, first, last, "track %d", n)
	}

	first, err := d.FirstSector(2)
	require.NoError(t, err)
	assert.Equal(t, SectorAddress(100), first)
	last, err := d.LastSector(2)
	require.NoError(t, err)
	assert.Equal(t, SectorAddress(299), last)

	tr, err := d.Track(2)
	require.NoError(t, err)
	assert.Equal(t, Track{
		Number:        2,
		FirstSector:   100,
		LastSector:    299,
		Audio:         true,
		CopyPermitted: false,
		PreEmphasis:   false,
		NumChannels:   2,
	}, tr)
	assert.Equal(t, int64(200), tr.LengthSectors())
	assert.Equal(t, int64(200*BytesPerSector), tr.LengthBytes())

	tracks := d.Tracks()
	require.Len(t, tracks, 3)
	assert.True(t, tracks[0].CopyPermitted)
	// a copy, not the cached table
	tracks[0].FirstSector = 1234
	first, _ = d.FirstSector(1)
	assert.Equal(t, SectorAddress(0), first)

	lo, hi, err := d.AudioRegion()
	require.NoError(t, err)
	assert.Equal(t, SectorAddress(0), lo)
	assert.Equal(t, SectorAddress(349), hi)

	n, err := d.TrackAt(150)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = d.TrackAt(350)
	assert.ErrorIs(t, err, ErrInvalidTrack)
}

func TestOpenMixedModeDisc(t *testing.T) {
	fd := newFakeDrive(500, 100, 100)
	fd.data[1] = true
	d := openFake(t, fd)

	assert.Equal(t, 3, d.TrackCount())
	assert.Equal(t, 2, d.FirstAudioTrack())
	assert.Equal(t, 3, d.LastAudioTrack())

	lo, hi, err := d.AudioRegion()
	require.NoError(t, err)
	assert.Equal(t, SectorAddress(500), lo)
	assert.Equal(t, SectorAddress(699), hi)

	n, err := d.TrackAt(10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInvalidTrack(t *testing.T) {
	d := openFake(t, newFakeDrive(100, 200, 50))

	for _, n := range []int{-1, 0, 4, 99} {
		_, err := d.FirstSector(n)
		assert.ErrorIs(t, err, ErrInvalidTrack, "first sector of %d", n)
		_, err = d.LastSector(n)
		assert.ErrorIs(t, err, ErrInvalidTrack, "last sector of %d", n)

		var de *DriveError
		_, err = d.Track(n)
		require.ErrorAs(t, err, &de)
		assert.Equal(t, n, de.Track)
		assert.Equal(t, "track", de.Op)
	}
}

func TestOpenNotFound(t *testing.T) {
	fd := newFakeDrive(100)
	fd.identifyMissing = true
	useFakeDrive(t, fd)

	d, err := Open("")
	assert.Nil(t, d)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	missing := filepath.Join(t.TempDir(), "sr9")
	_, err = Open(missing)
	assert.ErrorIs(t, err, ErrNotFound)
	var de *DriveError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, missing, de.Device)
	assert.Equal(t, "open", de.Op)
	assert.Zero(t, fd.closeCalls)
}

func TestOpenFailedOnExistingDevice(t *testing.T) {
	fd := newFakeDrive(100)
	fd.identifyMissing = true
	useFakeDrive(t, fd)

	// exists, but is not a cd drive
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrOpenFailed)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestOpenDefaultDeviceDenied(t *testing.T) {
	fd := newFakeDrive(100)
	fd.identifyMissing = true
	fd.identifyText = "Checking /dev/cdrom for cdrom...\n\t\tUnable to open /dev/cdrom: Permission denied\n"
	useFakeDrive(t, fd)

	_, err := Open("")
	assert.ErrorIs(t, err, ErrOpenFailed)
	assert.NotErrorIs(t, err, ErrNotFound)

	fd.identifyText = "Checking /dev/cdrom for cdrom...\n\t\tCould not stat /dev/cdrom: No such file or directory\n"
	_, err = Open("")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiscFirstSector(t *testing.T) {
	fd := newFakeDrive(100, 50, 50)
	fd.data[1] = true
	d := openFake(t, fd)

	first, err := d.DiscFirstSector()
	require.NoError(t, err)
	assert.Equal(t, SectorAddress(100), first)

	require.NoError(t, d.Close())
	_, err = d.DiscFirstSector()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		ret  int
		kind error
		code Code
	}{
		{"no medium", -404, ErrNoDisc, CodeNoMediumPresent},
		{"bad toc header", -4, ErrNoDisc, CodeReadTOCHeader},
		{"lead-out", -2, ErrNoDisc, CodeReadTOCLeadOut},
		{"permission denied", -102, ErrOpenFailed, CodePermissionDenied},
		{"interface", -100, ErrOpenFailed, CodeInterfaceNotSupported},
		{"audio mode", -1, ErrOpenFailed, CodeSetReadAudioMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fd := newFakeDrive(100)
			fd.openRet = tt.ret
			useFakeDrive(t, fd)

			d, err := Open("/dev/fake")
			assert.Nil(t, d)
			assert.ErrorIs(t, err, tt.kind)
			assert.ErrorIs(t, err, tt.code)
			assert.Equal(t, 1, fd.closeCalls, "identified drive must be released")
		})
	}
}

func TestOpenNoAudio(t *testing.T) {
	fd := newFakeDrive(100, 100)
	fd.data[1] = true
	fd.data[2] = true
	useFakeDrive(t, fd)

	_, err := Open("/dev/fake")
	assert.ErrorIs(t, err, ErrNoDisc)
	assert.ErrorIs(t, err, CodeNoAudioTracks)
	assert.Equal(t, 1, fd.closeCalls)
}

func TestOpenBadTrackCount(t *testing.T) {
	for _, ret := range []int{0, -3} {
		fd := newFakeDrive(100)
		fd.tracksRet = &ret
		useFakeDrive(t, fd)

		_, err := Open("/dev/fake")
		assert.ErrorIs(t, err, ErrNoDisc, "tracks() = %d", ret)
		assert.Equal(t, 1, fd.closeCalls)
	}
}

func TestCloseReleasesOnce(t *testing.T) {
	fd := newFakeDrive(100, 200, 50)
	d := openFake(t, fd)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.Equal(t, 1, fd.closeCalls)
	assert.False(t, d.IsOpen())

	assert.Equal(t, 0, d.TrackCount())
	assert.Equal(t, 0, d.FirstAudioTrack())
	assert.Equal(t, 0, d.LastAudioTrack())
	assert.Nil(t, d.Tracks())

	_, err := d.FirstSector(1)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, err, fs.ErrClosed)
	_, _, err = d.AudioRegion()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = d.TrackAt(0)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, d.SetSpeed(4), ErrClosed)

	_, err = d.NewReader()
	assert.ErrorIs(t, err, ErrClosed)
	assert.Empty(t, fd.contexts)
}

func TestSetSpeed(t *testing.T) {
	fd := newFakeDrive(100)
	d := openFake(t, fd)

	require.NoError(t, d.SetSpeed(8))
	require.NoError(t, d.SetSpeed(FullSpeed))
	assert.Equal(t, []int{8, FullSpeed}, fd.speeds)

	fd.speedRet = -405
	err := d.SetSpeed(2)
	assert.ErrorIs(t, err, CodeOperationNotSupported)
}

func TestWithSpeedFailureStillOpens(t *testing.T) {
	fd := newFakeDrive(100)
	fd.speedRet = -405
	var buf bytes.Buffer
	d := openFake(t, fd, WithSpeed(4), WithLogger(zerolog.New(&buf)))

	assert.True(t, d.IsOpen())
	assert.Equal(t, []int{4}, fd.speeds)
	assert.Contains(t, buf.String(), "unable to set drive speed")
}

func TestLogForwarding(t *testing.T) {
	fd := newFakeDrive(100)
	fd.identifyText = "Checking /dev/fake for cdrom...\n"
	fd.msgText = "CDROM model sensed: FAKE\n\nopened\n"
	fd.errText = "SG_IO: warning\n"

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	openFake(t, fd, WithLogMode(LogModeLogger), WithLogger(logger))

	assert.Equal(t, LogModeLogger, fd.lastMode)
	out := buf.String()
	assert.Contains(t, out, `"message":"Checking /dev/fake for cdrom..."`)
	assert.Contains(t, out, `"message":"CDROM model sensed: FAKE"`)
	assert.Contains(t, out, `"level":"warn","device":"/dev/fake","source":"libcdparanoia","message":"SG_IO: warning"`)
	assert.NotContains(t, out, `"message":""`)
}

func TestLogForwardingSilent(t *testing.T) {
	fd := newFakeDrive(100)
	fd.msgText = "CDROM model sensed: FAKE\n"

	var buf bytes.Buffer
	openFake(t, fd, WithLogger(zerolog.New(&buf)))

	assert.Equal(t, LogModeSilent, fd.lastMode)
	assert.NotContains(t, buf.String(), "libcdparanoia")
	assert.Empty(t, fd.msgText, "buffers are drained in every mode")
}

func TestDriveErrorMessage(t *testing.T) {
	fd := newFakeDrive(100)
	fd.openRet = -404
	useFakeDrive(t, fd)

	_, err := Open("/dev/fake")
	assert.EqualError(t, err, "cdparanoia: open /dev/fake: no audio disc in drive: no medium present (404)")

	var de *DriveError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, CodeNoMediumPresent, de.Code)
}
