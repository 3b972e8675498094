package vfs

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/diskfs/go-diskfs/filesystem/fat32"
	"github.com/rabidaudio/cdrip/wav"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "UPCASE", sanitizeName("upcase"))
	assert.Equal(t, "MYFILE", sanitizeName("my file"))
	assert.Equal(t, "LIMITSLE", sanitizeName("limitslengthtoeight"))
	assert.Equal(t, "RMVNUMR", sanitizeName("r3m0v35 num83r5"))
	assert.Equal(t, "", sanitizeName(""))
	assert.Equal(t, "ILUV", sanitizeName("I luv ĀḞÍ♥︎✨ :3"))
}

func TestVolumeLabel(t *testing.T) {
	assert.Equal(t, "CHRONICT", volumeLabel("Chronic Town"))
	assert.Equal(t, "AUDIOCD", volumeLabel("1,000,000"))
}

func TestImageSize(t *testing.T) {
	assert.Equal(t, int64(MinImageSize), ImageSize(0))
	assert.Equal(t, int64(0), ImageSize(0)%fat32.MB)

	// a full 80 minute disc
	data := int64(80 * 60 * 44100 * 4)
	size := ImageSize(data)
	assert.Greater(t, size, data)
	assert.Equal(t, int64(0), size%fat32.MB)
}

func createImage(t *testing.T, name string) *Image {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disc.img")
	img, err := Create(path, ImageSize(0), name, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = img.Close() })
	return img
}

func writeTrack(t *testing.T, img *Image, n int, pcm []byte) {
	t.Helper()
	f, err := img.CreateTrack(n)
	require.NoError(t, err)
	w, err := wav.NewWriter(f, wav.CDDA, int64(len(pcm)))
	require.NoError(t, err)
	_, err = w.Write(pcm)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func TestCreate(t *testing.T) {
	img := createImage(t, "R.E.M. - Chronic Town")

	assert.Equal(t, "/REMCHRON", img.Dir())
	assert.Equal(t, "/REMCHRON/track03.wav", img.TrackPath(3))

	fi, err := os.Stat(img.Path)
	require.NoError(t, err)
	assert.Equal(t, ImageSize(0), fi.Size())

	files, err := img.Files()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCreateRoot(t *testing.T) {
	img := createImage(t, "")
	assert.Equal(t, "", img.Dir())
	assert.Equal(t, "/track01.wav", img.TrackPath(1))
}

func TestCreateRejects(t *testing.T) {
	dir := t.TempDir()

	_, err := Create(filepath.Join(dir, "small.img"), fat32.MB, "x", zerolog.Nop())
	assert.Error(t, err)

	existing := filepath.Join(dir, "exists.img")
	require.NoError(t, os.WriteFile(existing, []byte("keep"), 0o644))
	_, err = Create(existing, ImageSize(0), "x", zerolog.Nop())
	assert.ErrorIs(t, err, os.ErrExist)

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}

func TestWriteTracks(t *testing.T) {
	img := createImage(t, "The Tones")

	pcm := make([]byte, 3*2352)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	writeTrack(t, img, 1, pcm)
	writeTrack(t, img, 2, pcm[:2352])

	files, err := img.Files()
	require.NoError(t, err)
	sizes := make(map[string]int64)
	for _, fi := range files {
		sizes[fi.Name()] = fi.Size()
	}
	assert.Equal(t, map[string]int64{
		"track01.wav": wav.HeaderSize + 3*2352,
		"track02.wav": wav.HeaderSize + 2352,
	}, sizes)

	f, err := img.OpenTrack(1)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, wav.HeaderSize+3*2352))
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, uint32(3*2352), binary.LittleEndian.Uint32(data[40:44]))
	assert.Equal(t, pcm, data[wav.HeaderSize:])

	_, err = img.CreateTrack(1)
	assert.ErrorIs(t, err, os.ErrExist)
}

func TestRemoveTrack(t *testing.T) {
	img := createImage(t, "The Tones")
	writeTrack(t, img, 1, make([]byte, 2352))

	require.NoError(t, img.RemoveTrack(1))
	assert.ErrorIs(t, img.RemoveTrack(1), os.ErrNotExist)
	_, err := img.OpenTrack(1)
	assert.ErrorIs(t, err, os.ErrNotExist)

	files, err := img.Files()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCloseKeepsImage(t *testing.T) {
	img := createImage(t, "The Tones")
	writeTrack(t, img, 1, make([]byte, 2352))

	require.NoError(t, img.Close())
	require.NoError(t, img.Close())

	_, err := img.CreateTrack(2)
	assert.ErrorIs(t, err, os.ErrClosed)
	_, err = img.Files()
	assert.ErrorIs(t, err, os.ErrClosed)

	_, err = os.Stat(img.Path)
	assert.NoError(t, err)
}
