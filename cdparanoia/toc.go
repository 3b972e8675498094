package cdparanoia

import "encoding/binary"

// SectorAddress is an absolute sector index (LSN) on the disc.
type SectorAddress int64

// Sector is one sector of CD-DA audio: 588 stereo frames of signed 16-bit
// samples in host byte order, as returned by the library.
type Sector [BytesPerSector]byte

// Track reports the table of contents entry for one track.
type Track struct {
	Number        int           // index of the track, starting at 1
	FirstSector   SectorAddress // address of the sector where the data starts
	LastSector    SectorAddress // address of the final sector, inclusive
	Audio         bool          // mixed-mode disks can have data tracks in addition to audio tracks
	CopyPermitted bool
	PreEmphasis   bool
	NumChannels   int // 2, or 4 for the never-produced quadraphonic format
}

// LengthSectors returns the number of sectors the track covers.
func (t Track) LengthSectors() int64 {
	return int64(t.LastSector-t.FirstSector) + 1
}

// LengthBytes returns the size of the track's PCM data.
func (t Track) LengthBytes() int64 {
	return t.LengthSectors() * BytesPerSector
}

// ContainsSector reports whether the given sector is within the track bounds.
func (t Track) ContainsSector(sector SectorAddress) bool {
	return sector >= t.FirstSector && sector <= t.LastSector
}

var hostLittleEndian = binary.NativeEndian.Uint16([]byte{1, 0}) == 1

// LittleEndian returns the sector with its samples in little-endian byte
// order, the order RIFF/WAVE files store them in.
func (s Sector) LittleEndian() Sector {
	if hostLittleEndian {
		return s
	}
	var out Sector
	for i := 0; i < BytesPerSector; i += BytesPerSample {
		out[i], out[i+1] = s[i+1], s[i]
	}
	return out
}

// Samples returns the interleaved left/right samples of the sector.
func (s Sector) Samples() []int16 {
	out := make([]int16, SamplesPerSector)
	for i := range out {
		out[i] = int16(binary.NativeEndian.Uint16(s[i*BytesPerSample:]))
	}
	return out
}
