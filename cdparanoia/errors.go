package cdparanoia

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
)

type kindError struct {
	msg    string
	parent error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.parent }

// Drive errors. Test with [errors.Is].
var (
	// ErrNotFound is returned when no cd drive was found.
	ErrNotFound error = &kindError{"cdparanoia: no cd drive found", fs.ErrNotExist}
	// ErrOpenFailed is returned when the device exists but could not be
	// identified or opened (permissions, not a cdrom, locked).
	ErrOpenFailed = errors.New("cdparanoia: unable to open drive")
	// ErrNoDisc is returned when no medium is present or it carries no
	// readable audio table of contents.
	ErrNoDisc = errors.New("cdparanoia: no audio disc in drive")
	// ErrInvalidTrack is returned for track numbers outside 1..TrackCount.
	ErrInvalidTrack = errors.New("cdparanoia: invalid track number")
)

// Read errors. Test with [errors.Is].
var (
	// ErrSeekOutOfRange is returned when seeking outside the audio region.
	ErrSeekOutOfRange = errors.New("cdparanoia: seek out of range")
	// ErrEndOfDisc is returned once the cursor has passed the last sector
	// of the current track. It also matches [io.EOF].
	ErrEndOfDisc error = &kindError{"cdparanoia: end of disc", io.EOF}
	// ErrUnrecoverableRead is returned when the library could not
	// reconstruct a sector even after correction and retries.
	ErrUnrecoverableRead = errors.New("cdparanoia: unrecoverable read")
	// ErrDriveIO is returned for transport level failures (no medium,
	// device removed).
	ErrDriveIO = errors.New("cdparanoia: drive i/o error")
	// ErrNotPositioned is returned when reading before the first seek.
	ErrNotPositioned = errors.New("cdparanoia: reader not positioned")
)

// ErrClosed is returned by every operation on a drive or reader that has
// been released, including readers whose drive was closed. It also
// matches [fs.ErrClosed].
var ErrClosed error = &kindError{"cdparanoia: use of closed handle", fs.ErrClosed}

// Code is an error code reported by libcdparanoia. The library returns
// them negated.
type Code int

const (
	CodeSetReadAudioMode      Code = 1
	CodeReadTOCLeadOut        Code = 2
	CodeIllegalNumberOfTracks Code = 3
	CodeReadTOCHeader         Code = 4
	CodeReadTOCEntry          Code = 5
	CodeNoData                Code = 6
	CodeUnknownReadError      Code = 7
	CodeUnableToIdentifyModel Code = 8
	CodeIllegalTOC            Code = 9
	CodeInterfaceNotSupported Code = 100
	CodePermissionDenied      Code = 102
	CodeKernelMemory          Code = 300
	CodeNotOpen               Code = 400
	CodeInvalidTrackNumber    Code = 401
	CodeNoAudioTracks         Code = 403
	CodeNoMediumPresent       Code = 404
	CodeOperationNotSupported Code = 405
)

// codeFromReturn converts a negative return value to a Code. Non-negative
// values yield 0.
func codeFromReturn(ret int64) Code {
	if ret >= 0 {
		return 0
	}
	return Code(-ret)
}

func (c Code) Error() string {
	return "cdparanoia: " + c.name()
}

func (c Code) name() string {
	switch c {
	case CodeSetReadAudioMode:
		return "unable to set CDROM to read audio mode"
	case CodeReadTOCLeadOut:
		return "unable to read table of contents lead-out"
	case CodeIllegalNumberOfTracks:
		return "cdrom reporting illegal number of tracks"
	case CodeReadTOCHeader:
		return "unable to read table of contents header"
	case CodeReadTOCEntry:
		return "unable to read table of contents entry"
	case CodeNoData:
		return "could not read any data from drive"
	case CodeUnknownReadError:
		return "unknown, unrecoverable error reading data"
	case CodeUnableToIdentifyModel:
		return "unable to identify CDROM model"
	case CodeIllegalTOC:
		return "cdrom reporting illegal table of contents"

	case CodeInterfaceNotSupported:
		return "interface not supported"
	case CodePermissionDenied:
		return "permission denied on cdrom (ioctl) device"

	case CodeKernelMemory:
		return "kernel memory error"

	case CodeNotOpen:
		return "device not open"
	case CodeInvalidTrackNumber:
		return "invalid track number"
	case CodeNoAudioTracks:
		return "no audio tracks on disc"
	case CodeNoMediumPresent:
		return "no medium present"
	case CodeOperationNotSupported:
		return "option not supported by drive"
	default:
		return fmt.Sprintf("unknown error code: %v", int(c))
	}
}

// driveKind maps a code returned while opening a drive or reading its TOC
// to a drive error kind.
func driveKind(c Code) error {
	switch c {
	case CodeNoMediumPresent, CodeNoAudioTracks,
		CodeReadTOCLeadOut, CodeIllegalNumberOfTracks, CodeReadTOCHeader,
		CodeReadTOCEntry, CodeIllegalTOC:
		return ErrNoDisc
	case CodeInvalidTrackNumber:
		return ErrInvalidTrack
	case CodeNotOpen:
		return ErrClosed
	default:
		return ErrOpenFailed
	}
}

// readKind maps a code returned on the read path to a read error kind.
func readKind(c Code) error {
	switch c {
	case CodeNoData, CodeUnknownReadError:
		return ErrUnrecoverableRead
	case CodeInvalidTrackNumber:
		return ErrSeekOutOfRange
	case CodeNotOpen:
		return ErrClosed
	default:
		return ErrDriveIO
	}
}

func kindText(kind error) string {
	return strings.TrimPrefix(kind.Error(), "cdparanoia: ")
}

// DriveError describes a failure to open or query a drive.
type DriveError struct {
	Op     string // the operation, e.g. "open"
	Device string // device path, empty for the default device
	Track  int    // track number for track lookups, else 0
	Kind   error  // one of the drive error sentinels, or ErrClosed
	Code   Code   // native code if the library reported one
}

func (e *DriveError) Error() string {
	var b strings.Builder
	b.WriteString("cdparanoia: ")
	b.WriteString(e.Op)
	if e.Device != "" {
		b.WriteString(" " + e.Device)
	}
	if e.Track != 0 {
		fmt.Fprintf(&b, " track %d", e.Track)
	}
	b.WriteString(": " + kindText(e.Kind))
	if e.Code != 0 {
		fmt.Fprintf(&b, ": %s (%d)", e.Code.name(), int(e.Code))
	}
	return b.String()
}

func (e *DriveError) Unwrap() []error {
	if e.Code != 0 {
		return []error{e.Kind, e.Code}
	}
	return []error{e.Kind}
}

// ReadError describes a failure on the read path of a [Reader].
type ReadError struct {
	Op     string        // "seek" or "read"
	Sector SectorAddress // the sector being sought or read
	Kind   error         // one of the read error sentinels, or ErrClosed
	Code   Code          // native code if the library reported one
	Detail string        // text the library logged for this failure, if any
}

func (e *ReadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cdparanoia: %s sector %d: %s", e.Op, e.Sector, kindText(e.Kind))
	if e.Code != 0 {
		fmt.Fprintf(&b, ": %s (%d)", e.Code.name(), int(e.Code))
	}
	if e.Detail != "" {
		b.WriteString(": " + e.Detail)
	}
	return b.String()
}

func (e *ReadError) Unwrap() []error {
	if e.Code != 0 {
		return []error{e.Kind, e.Code}
	}
	return []error{e.Kind}
}
