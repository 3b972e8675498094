package cdparanoia

import "fmt"

// InterfaceType is the kernel interface libcdparanoia uses to talk to the
// drive.
type InterfaceType int

const (
	GENERIC_SCSI     InterfaceType = 0
	COOKED_IOCTL     InterfaceType = 1
	TEST_INTERFACE   InterfaceType = 2
	SGIO_SCSI        InterfaceType = 3
	SGIO_SCSI_BUGGY1 InterfaceType = 4
)

func (it InterfaceType) String() string {
	switch it {
	case GENERIC_SCSI:
		return "generic SCSI"
	case COOKED_IOCTL:
		return "cooked ioctl"
	case TEST_INTERFACE:
		return "test interface"
	case SGIO_SCSI:
		return "SG_IO SCSI"
	case SGIO_SCSI_BUGGY1:
		return "SG_IO SCSI (buggy)"
	default:
		return "unknown"
	}
}

// DriveType is the kernel major device number of the drive. It names the
// driver the drive is attached through, which decides whether digital
// audio extraction is possible at all.
type DriveType int

// Major numbers from linux/major.h.
const (
	IDE0_MAJOR DriveType = 3
	IDE1_MAJOR DriveType = 22
	IDE2_MAJOR DriveType = 33
	IDE3_MAJOR DriveType = 34
	IDE4_MAJOR DriveType = 56
	IDE5_MAJOR DriveType = 57
	IDE6_MAJOR DriveType = 88
	IDE7_MAJOR DriveType = 89
	IDE8_MAJOR DriveType = 90
	IDE9_MAJOR DriveType = 91

	SCSI_CDROM_MAJOR   DriveType = 11
	SCSI_GENERIC_MAJOR DriveType = 21

	CDU31A_CDROM_MAJOR      DriveType = 15
	CDU535_CDROM_MAJOR      DriveType = 24
	MATSUSHITA_CDROM_MAJOR  DriveType = 25
	MATSUSHITA_CDROM2_MAJOR DriveType = 26
	MATSUSHITA_CDROM3_MAJOR DriveType = 27
	MATSUSHITA_CDROM4_MAJOR DriveType = 28
	SANYO_CDROM_MAJOR       DriveType = 18
	MITSUMI_CDROM_MAJOR     DriveType = 23
	MITSUMI_X_CDROM_MAJOR   DriveType = 20
	OPTICS_CDROM_MAJOR      DriveType = 17
	AZTECH_CDROM_MAJOR      DriveType = 29
	GOLDSTAR_CDROM_MAJOR    DriveType = 30
	CM206_CDROM_MAJOR       DriveType = 32
)

type driveFamily struct {
	name string
	cdda bool
}

var driveFamilies = map[DriveType]driveFamily{
	IDE0_MAJOR: {"ATAPI", true},
	IDE1_MAJOR: {"ATAPI", true},
	IDE2_MAJOR: {"ATAPI", true},
	IDE3_MAJOR: {"ATAPI", true},
	IDE4_MAJOR: {"ATAPI", true},
	IDE5_MAJOR: {"ATAPI", true},
	IDE6_MAJOR: {"ATAPI", true},
	IDE7_MAJOR: {"ATAPI", true},
	IDE8_MAJOR: {"ATAPI", true},
	IDE9_MAJOR: {"ATAPI", true},

	SCSI_CDROM_MAJOR:   {"SCSI", true},
	SCSI_GENERIC_MAJOR: {"SCSI generic", true},

	CDU31A_CDROM_MAJOR:      {"Sony CDU31A", true},
	CDU535_CDROM_MAJOR:      {"Sony CDU535", true},
	MATSUSHITA_CDROM_MAJOR:  {"Matsushita/Panasonic CR-5xx", true},
	MATSUSHITA_CDROM2_MAJOR: {"Matsushita/Panasonic CR-5xx", true},
	MATSUSHITA_CDROM3_MAJOR: {"Matsushita/Panasonic CR-5xx", true},
	MATSUSHITA_CDROM4_MAJOR: {"Matsushita/Panasonic CR-5xx", true},

	SANYO_CDROM_MAJOR:     {"Sanyo", false},
	MITSUMI_CDROM_MAJOR:   {"Mitsumi", false},
	MITSUMI_X_CDROM_MAJOR: {"Mitsumi", false},
	OPTICS_CDROM_MAJOR:    {"Optics Dolphin", false},
	AZTECH_CDROM_MAJOR:    {"Aztech", false},
	GOLDSTAR_CDROM_MAJOR:  {"Goldstar", false},
	CM206_CDROM_MAJOR:     {"Philips/LMS CM206", false},
}

// CDDACapable reports whether drives of this type can deliver digital
// audio. Unknown types are assumed capable.
func (dt DriveType) CDDACapable() bool {
	f, ok := driveFamilies[dt]
	return !ok || f.cdda
}

func (dt DriveType) String() string {
	f, ok := driveFamilies[dt]
	if !ok {
		return fmt.Sprintf("unknown (major %d)", int(dt))
	}
	if !f.cdda {
		return f.name + " (no digital audio)"
	}
	return f.name
}
