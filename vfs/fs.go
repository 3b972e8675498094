// Package vfs builds FAT32 disk images holding one WAV file per ripped
// track, ready to be written to a USB stick or served as mass storage.
package vfs

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"
	"github.com/diskfs/go-diskfs/filesystem/fat32"
	"github.com/diskfs/go-diskfs/partition/mbr"
	"github.com/rs/zerolog"
)

const SectorSize = 512

// partitionStart leaves the first MiB for the partition table, aligned the
// way partitioning tools do it.
const partitionStart = 2048

// MinImageSize is the smallest image Create makes. FAT32 needs at least
// 65525 clusters.
const MinImageSize = 64 * fat32.MB

// ImageSize returns a disk size able to hold dataBytes of files, rounded
// up to whole MiB.
func ImageSize(dataBytes int64) int64 {
	// room for the FATs, directory entries and cluster slack
	size := dataBytes + dataBytes/16 + 16*fat32.MB + partitionStart*SectorSize
	size = max(size, MinImageSize)
	return (size + fat32.MB - 1) / fat32.MB * fat32.MB
}

// Image is a disk image file with an MBR and a single FAT32 partition.
// Tracks are stored under a directory named after the disc.
type Image struct {
	Path string

	fs     filesystem.FileSystem
	dir    string
	tracks map[int]string
	logger zerolog.Logger
}

// sanitizeName takes a file name and converts it to DOS format
// by uppercasing, limiting to ASCII letters, and triming to 8 chars
func sanitizeName(name string) string {
	// https://en.wikipedia.org/wiki/8.3_filename
	newName := make([]rune, 0, 8)
	for _, r := range strings.ToUpper(name) {
		if len(newName) == 8 {
			break
		}
		if r >= 'A' && r <= 'Z' {
			newName = append(newName, r)
		}
	}
	return string(newName)
}

// volumeLabel is at most 11 characters.
func volumeLabel(name string) string {
	label := sanitizeName(name)
	if label == "" {
		return "AUDIOCD"
	}
	return label
}

// Create makes a new image of size bytes at path, which must not exist.
// Tracks go into a directory derived from discName, or the root if the
// name has no usable characters.
func Create(path string, size int64, discName string, logger zerolog.Logger) (*Image, error) {
	if size < MinImageSize {
		return nil, fmt.Errorf("vfs: image size %d below minimum %d", size, int64(MinImageSize))
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("vfs: %s: %w", path, os.ErrExist)
	}

	dsk, err := diskfs.Create(path, size, diskfs.SectorSizeDefault)
	if err != nil {
		return nil, fmt.Errorf("vfs: create %s: %w", path, err)
	}

	// create an MBR with one partition
	table := &mbr.Table{
		LogicalSectorSize:  SectorSize,
		PhysicalSectorSize: SectorSize,
		Partitions: []*mbr.Partition{
			{
				Bootable: false,
				Type:     mbr.Fat32LBA,
				Start:    partitionStart,
				Size:     uint32(size/SectorSize) - partitionStart,
			},
		},
	}
	if err := dsk.Partition(table); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("vfs: partition %s: %w", path, err)
	}

	fatfs, err := dsk.CreateFilesystem(disk.FilesystemSpec{
		Partition:   1,
		FSType:      filesystem.TypeFat32,
		VolumeLabel: volumeLabel(discName),
	})
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("vfs: format %s: %w", path, err)
	}

	img := &Image{
		Path:   path,
		fs:     fatfs,
		tracks: make(map[int]string),
		logger: logger.With().Str("image", path).Logger(),
	}
	if name := sanitizeName(discName); name != "" {
		img.dir = "/" + name
		if err := fatfs.Mkdir(img.dir); err != nil {
			_ = fatfs.Close()
			_ = os.Remove(path)
			return nil, fmt.Errorf("vfs: mkdir %s: %w", img.dir, err)
		}
	}
	img.logger.Debug().Int64("size", size).Str("dir", img.dir).Msg("image created")
	return img, nil
}

// Dir returns the directory holding the tracks, "" for the root.
func (img *Image) Dir() string {
	return img.dir
}

// TrackPath returns the path of track n inside the image.
func (img *Image) TrackPath(n int) string {
	return fmt.Sprintf("%s/track%02d.wav", img.dir, n)
}

// CreateTrack creates the file for track n. The caller writes the WAV
// data into it and closes it.
func (img *Image) CreateTrack(n int) (filesystem.File, error) {
	if img.fs == nil {
		return nil, os.ErrClosed
	}
	if _, ok := img.tracks[n]; ok {
		return nil, fmt.Errorf("vfs: track %d: %w", n, os.ErrExist)
	}
	path := img.TrackPath(n)
	f, err := img.fs.OpenFile(path, os.O_CREATE|os.O_RDWR)
	if err != nil {
		return nil, fmt.Errorf("vfs: create %s: %w", path, err)
	}
	img.tracks[n] = path
	return f, nil
}

// OpenTrack opens the file of track n for reading.
func (img *Image) OpenTrack(n int) (filesystem.File, error) {
	if img.fs == nil {
		return nil, os.ErrClosed
	}
	path, ok := img.tracks[n]
	if !ok {
		return nil, fmt.Errorf("vfs: track %d: %w", n, os.ErrNotExist)
	}
	return img.fs.OpenFile(path, os.O_RDONLY)
}

// RemoveTrack deletes the file of track n.
func (img *Image) RemoveTrack(n int) error {
	if img.fs == nil {
		return os.ErrClosed
	}
	path, ok := img.tracks[n]
	if !ok {
		return fmt.Errorf("vfs: track %d: %w", n, os.ErrNotExist)
	}
	if err := img.fs.Remove(path); err != nil {
		return fmt.Errorf("vfs: remove %s: %w", path, err)
	}
	delete(img.tracks, n)
	return nil
}

// Files lists the files in the track directory.
func (img *Image) Files() ([]os.FileInfo, error) {
	if img.fs == nil {
		return nil, os.ErrClosed
	}
	dir := img.dir
	if dir == "" {
		dir = "/"
	}
	entries, err := img.fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := entries[:0]
	for _, fi := range entries {
		if !fi.IsDir() {
			files = append(files, fi)
		}
	}
	return files, nil
}

// Close flushes the filesystem and closes the image file. The image stays
// on disk.
func (img *Image) Close() error {
	if img.fs == nil {
		return nil
	}
	err := img.fs.Close()
	img.fs = nil
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("vfs: close %s: %w", img.Path, err)
	}
	img.logger.Debug().Int("tracks", len(img.tracks)).Msg("image closed")
	return nil
}
