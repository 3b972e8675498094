package cdparanoia

// nativeDrive is the part of libcdda_interface a Drive drives. Return
// values follow the C convention: negative numbers are negated error
// codes.
type nativeDrive interface {
	open() int
	close()

	model() string
	driveType() DriveType
	interfaceType() InterfaceType

	tracks() int
	trackFirstSector(track int) int64
	trackLastSector(track int) int64
	trackAudio(track int) int
	trackCopyPermitted(track int) int
	trackPreEmphasis(track int) int
	trackChannels(track int) int

	setSpeed(speed int) int

	// messages and errors drain the text the library buffered in
	// LogModeLogger mode.
	messages() string
	errors() string

	paranoiaInit() nativeParanoia
}

// nativeParanoia is one cdrom_paranoia context.
type nativeParanoia interface {
	modeSet(mode Mode)
	overlapSet(sectors int)
	// seek positions the library cursor. It returns the previous cursor, or
	// a negative value if the library refused the target.
	seek(sector int64) int64
	// read returns one corrected sector and the callbacks the library
	// issued while producing it. A nil slice means the library gave up.
	read(maxRetries int) ([]byte, []Event)
	free()
}

// identify locates a drive; device "" means search for the first one.
// It returns nil if no drive could be identified, plus any text the
// library logged while probing. Swapped out in tests.
var identify func(device string, lm LogMode) (nativeDrive, string) = nativeIdentify
