//go:build linux && cgo

package cdparanoia

// #cgo LDFLAGS: -lcdda_interface -lcdda_paranoia
// #include <stdint.h>
// #include <stdio.h>
// #include <stdlib.h>
// #include <sys/types.h>
// #include <linux/major.h>
// #include <cdda_interface.h>
// #include <cdda_paranoia.h>
//
// /* The read callback carries no user pointer, so events go to a single
//    exported Go function. Calls are serialized by readMu. */
// extern void goParanoiaEvent(long, int);
//
// static void event_bridge(long inpos, int function) {
//   goParanoiaEvent(inpos, function);
// }
//
// static int16_t *read_limited_bridge(cdrom_paranoia *p, int retries) {
//   return paranoia_read_limited(p, event_bridge, retries);
// }
import "C"

import (
	"slices"
	"sync"
	"unsafe"
)

// Native values, compared against the Go declarations in tests.
const (
	cFrameSizeRaw = C.CD_FRAMESIZE_RAW
	cFrameWords   = C.CD_FRAMEWORDS

	cModeFull      = C.PARANOIA_MODE_FULL
	cModeDisable   = C.PARANOIA_MODE_DISABLE
	cModeVerify    = C.PARANOIA_MODE_VERIFY
	cModeFragment  = C.PARANOIA_MODE_FRAGMENT
	cModeOverlap   = C.PARANOIA_MODE_OVERLAP
	cModeScratch   = C.PARANOIA_MODE_SCRATCH
	cModeRepair    = C.PARANOIA_MODE_REPAIR
	cModeNeverSkip = C.PARANOIA_MODE_NEVERSKIP

	cCallbackRead    = C.PARANOIA_CB_READ
	cCallbackSkip    = C.PARANOIA_CB_SKIP
	cCallbackReadErr = C.PARANOIA_CB_READERR
	cCallbackCache   = C.PARANOIA_CB_CACHEERR

	cMessageForget = C.CDDA_MESSAGE_FORGETIT
	cMessagePrint  = C.CDDA_MESSAGE_PRINTIT
	cMessageLog    = C.CDDA_MESSAGE_LOGIT

	cGenericSCSI = C.GENERIC_SCSI
	cCookedIoctl = C.COOKED_IOCTL
	cSGIOSCSI    = C.SGIO_SCSI

	cIDE0Major        = C.IDE0_MAJOR
	cIDE9Major        = C.IDE9_MAJOR
	cSCSICDROMMajor   = C.SCSI_CDROM_MAJOR
	cSCSIGenericMajor = C.SCSI_GENERIC_MAJOR
)

var (
	readMu     sync.Mutex
	readEvents []Event
)

func takeString(p *C.char) string {
	if p == nil {
		return ""
	}
	defer C.free(unsafe.Pointer(p))
	return C.GoString(p)
}

func nativeIdentify(device string, lm LogMode) (nativeDrive, string) {
	var msg *C.char
	var drive *C.cdrom_drive
	// silent identification still collects its messages; Open reads them
	// to classify a failure
	idMode := lm
	if idMode == LogModeSilent {
		idMode = LogModeLogger
	}
	if device == "" {
		drive = C.cdda_find_a_cdrom(C.int(idMode), &msg)
	} else {
		str := C.CString(device)
		defer C.free(unsafe.Pointer(str))
		drive = C.cdda_identify(str, C.int(idMode), &msg)
	}
	text := takeString(msg)
	if drive == nil {
		return nil, text
	}
	C.cdda_verbose_set(drive, C.int(lm), C.int(lm))
	return &cdromDrive{d: drive}, text
}

func nativeVersion() string {
	return C.GoString(C.paranoia_version())
}

func nativeInterfaceVersion() string {
	return C.GoString(C.cdda_version())
}

type cdromDrive struct {
	d *C.cdrom_drive
}

func (c *cdromDrive) open() int {
	return int(C.cdda_open(c.d))
}

// close also frees a drive that was identified but never opened.
func (c *cdromDrive) close() {
	C.cdda_close(c.d)
}

func (c *cdromDrive) model() string {
	return C.GoString(c.d.drive_model)
}

func (c *cdromDrive) driveType() DriveType {
	return DriveType(int(c.d.drive_type))
}

func (c *cdromDrive) interfaceType() InterfaceType {
	return InterfaceType(int(c.d._interface))
}

func (c *cdromDrive) tracks() int {
	return int(C.cdda_tracks(c.d))
}

func (c *cdromDrive) trackFirstSector(track int) int64 {
	return int64(C.cdda_track_firstsector(c.d, C.int(track)))
}

func (c *cdromDrive) trackLastSector(track int) int64 {
	return int64(C.cdda_track_lastsector(c.d, C.int(track)))
}

func (c *cdromDrive) trackAudio(track int) int {
	return int(C.cdda_track_audiop(c.d, C.int(track)))
}

func (c *cdromDrive) trackCopyPermitted(track int) int {
	return int(C.cdda_track_copyp(c.d, C.int(track)))
}

func (c *cdromDrive) trackPreEmphasis(track int) int {
	return int(C.cdda_track_preemp(c.d, C.int(track)))
}

func (c *cdromDrive) trackChannels(track int) int {
	return int(C.cdda_track_channels(c.d, C.int(track)))
}

func (c *cdromDrive) setSpeed(speed int) int {
	return int(C.cdda_speed_set(c.d, C.int(speed)))
}

func (c *cdromDrive) messages() string {
	return takeString(C.cdda_messages(c.d))
}

func (c *cdromDrive) errors() string {
	return takeString(C.cdda_errors(c.d))
}

func (c *cdromDrive) paranoiaInit() nativeParanoia {
	p := C.paranoia_init(c.d)
	if p == nil {
		return nil
	}
	return &paranoiaContext{p: unsafe.Pointer(p)}
}

type paranoiaContext struct {
	p unsafe.Pointer // *C.cdrom_paranoia
}

func (c *paranoiaContext) modeSet(mode Mode) {
	C.paranoia_modeset(c.p, C.int(mode))
}

func (c *paranoiaContext) overlapSet(sectors int) {
	C.paranoia_overlapset(c.p, C.long(sectors))
}

func (c *paranoiaContext) seek(sector int64) int64 {
	return int64(C.paranoia_seek(c.p, C.long(sector), C.SEEK_SET))
}

func (c *paranoiaContext) read(maxRetries int) ([]byte, []Event) {
	readMu.Lock()
	readEvents = readEvents[:0]
	buf := C.read_limited_bridge(c.p, C.int(maxRetries))
	events := slices.Clone(readEvents)
	readEvents = readEvents[:0]
	readMu.Unlock()

	if buf == nil {
		return nil, events
	}
	// copy out, the library reuses the buffer on the next read
	return C.GoBytes(unsafe.Pointer(buf), C.int(BytesPerSector)), events
}

func (c *paranoiaContext) free() {
	C.paranoia_free(c.p)
}
