// Package cdparanoia reads PCM audio data from a CD-DA disc in the cd
// drive, with the jitter correction and scratch repair of [CDParanoia].
//
// It's a cgo wrapper for libcdparanoia, which means it requires the
// library and headers to be installed, for example:
//
//	sudo apt install cdparanoia libcdparanoia-dev
//
// On other platforms, or with CGO_ENABLED=0, a simulated drive returning
// white noise is used instead so that dependent code can still be built and
// exercised.
//
// A [Drive] owns the opened device. A [Reader] is bound to a drive and
// reads corrected sectors from it. Both must be closed; closing a drive
// releases every reader still bound to it, and those readers then fail
// with [ErrClosed].
//
//	drive, err := cdparanoia.Open("/dev/cdrom")
//	if err != nil {
//		return err
//	}
//	defer drive.Close()
//
//	r, err := drive.NewReader()
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//
//	if err := r.SeekTrack(1); err != nil {
//		return err
//	}
//	for {
//		sector, err := r.ReadSector()
//		if errors.Is(err, cdparanoia.ErrEndOfDisc) {
//			break
//		}
//		...
//	}
//
// [CDParanoia]: https://xiph.org/paranoia/index.html
package cdparanoia

import "github.com/rs/zerolog"

// LogMode configures the destination for the library's own diagnostic
// messages. Values match CDDA_MESSAGE_*.
type LogMode int

const (
	LogModeSilent LogMode = 0 // disable logs
	LogModeStdErr LogMode = 1 // the library prints to stderr
	LogModeLogger LogMode = 2 // forward to the logger supplied with WithLogger
)

func (lm LogMode) String() string {
	switch lm {
	case LogModeSilent:
		return "silent"
	case LogModeStdErr:
		return "stderr"
	case LogModeLogger:
		return "logger"
	default:
		return "unknown"
	}
}

// Version returns the libcdda_paranoia version string.
func Version() string {
	return nativeVersion()
}

// InterfaceVersion returns the libcdda_interface version string.
func InterfaceVersion() string {
	return nativeInterfaceVersion()
}

// Option configures [Open].
type Option func(*openOptions)

type openOptions struct {
	logMode  LogMode
	logger   zerolog.Logger
	speed    int
	setSpeed bool
}

func defaultOptions() *openOptions {
	return &openOptions{
		logMode: LogModeSilent,
		logger:  zerolog.Nop(),
	}
}

// WithLogger sets the logger for binding diagnostics and, in
// [LogModeLogger], for messages forwarded from the library.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *openOptions) {
		o.logger = logger
	}
}

// WithLogMode directs the library's own messages.
func WithLogMode(lm LogMode) Option {
	return func(o *openOptions) {
		o.logMode = lm
	}
}

// WithSpeed sets the read speed multiplier right after opening. Drives that
// refuse the request are still opened; the failure is logged.
func WithSpeed(x int) Option {
	return func(o *openOptions) {
		o.speed = x
		o.setSpeed = true
	}
}
