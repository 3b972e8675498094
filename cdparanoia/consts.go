package cdparanoia

// SampleRate is the number of samples per second. All Redbook audio
// CDs use 44.1KHz.
const SampleRate = 44100

// BytesPerSample is 2 bytes, representing signed 16-bit samples.
const BytesPerSample = 2

// BitsPerSample is the sample depth of CD-DA audio.
const BitsPerSample = BytesPerSample * 8

// Channels is the number of audio channels in the data. All Redbook
// audio CDs are stereo.
//
// The TOC can flag a track as four-channel, but [Wikipedia] notes that
// four-channel audio support was planned but never implemented and no
// known drives support it.
//
// [Wikipedia]: https://en.wikipedia.org/wiki/Compact_Disc_Digital_Audio#Audio_format
const Channels = 2

// SectorsPerSecond is the number of audio frames in one second of audio.
// An audio frame is the smallest valid unit of length for a track, defined
// as 1/75th of a second. Redbook track offsets are specified in MM:SS:FF.
//
// Note that this definition of frame is interchangeable with sector.
// It is distinct from a 33-byte channel data frame, which this package does
// not concern itself with.
const SectorsPerSecond = 75

// BytesPerSector is the number of bytes of audio contained in one sector of
// CD data, 2352 bytes. It matches CD_FRAMESIZE_RAW.
const BytesPerSector = SampleRate * Channels * BytesPerSample / SectorsPerSecond

// SamplesPerSector is the number of 16-bit samples (both channels
// interleaved) in one sector, 1176. It matches CD_FRAMEWORDS.
const SamplesPerSector = BytesPerSector / BytesPerSample

// FullSpeed can be passed to [Drive.SetSpeed] to run the drive at its
// fastest speed.
const FullSpeed = -1

// DefaultMaxRetries is the number of repeated reads the library makes on a
// failing sector before skipping it, the same as paranoia_read.
const DefaultMaxRetries = 20

// MaxOverlap is the largest overlap search, in sectors, accepted by
// [Reader.SetOverlap].
const MaxOverlap = 75
