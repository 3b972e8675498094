// Command cdrip rips audio tracks from a cd into WAV files using
// libcdparanoia.
//
//	cdrip [flags] <device> <track>
//
// The device "default" picks the first cd drive found. The track is a
// track number or "all" for every audio track.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rabidaudio/cdrip/cdparanoia"
	"github.com/rabidaudio/cdrip/config"
	"github.com/rabidaudio/cdrip/rip"
	"github.com/rabidaudio/cdrip/vfs"
	"github.com/rabidaudio/cdrip/wav"
	"github.com/rs/zerolog"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// openDrive is swapped out in tests.
var openDrive = cdparanoia.Open

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type flags struct {
	configPath string
	cfg        config.Config
	verbose    bool
	toc        bool
	play       bool
	name       string
}

func parseFlags(args []string, stderr io.Writer) (*flags, []string, error) {
	var f flags
	fs := flag.NewFlagSet("cdrip", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: cdrip [flags] <device> <track>\n\n")
		fmt.Fprintf(fs.Output(), "device \"default\" uses the first drive found, track \"all\" rips every audio track.\n\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&f.configPath, "config", "", "Jsonnet configuration file, - for stdin")
	fs.StringVar(&f.cfg.Output, "o", "", "output file, or directory when ripping all tracks")
	fs.StringVar(&f.cfg.Image, "image", "", "write the tracks into a new FAT32 disk image instead")
	fs.StringVar(&f.name, "name", "", "disc name used for the image volume label and directory")
	fs.StringVar(&f.cfg.Mode, "mode", "", "paranoia mode: full, disable or features joined by | (verify|fragment|overlap|scratch|repair|neverskip)")
	fs.IntVar(&f.cfg.MaxRetries, "retries", 0, "re-reads of a failing sector before it is skipped")
	fs.IntVar(&f.cfg.Overlap, "overlap", 0, "fixed overlap search in sectors, 0 for dynamic")
	fs.IntVar(&f.cfg.Speed, "speed", 0, "drive speed multiplier, -1 for full speed, 0 to leave unchanged")
	fs.StringVar(&f.cfg.LogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	fs.StringVar(&f.cfg.LibraryLog, "library-log", "", "where libcdparanoia messages go: logger, stderr or silent")
	fs.StringVar(&f.cfg.MetricsFile, "metrics-file", "", "write prometheus metrics in textfile format to this path")
	fs.BoolVar(&f.verbose, "v", false, "shorthand for -log-level debug")
	fs.BoolVar(&f.toc, "toc", false, "print the table of contents and exit")
	fs.BoolVar(&f.play, "play", false, "play the track through the speaker instead of ripping it")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if f.verbose && f.cfg.LogLevel == "" {
		f.cfg.LogLevel = zerolog.DebugLevel.String()
	}
	want := 2
	if f.toc {
		want = 1
	}
	if fs.NArg() != want {
		fs.Usage()
		return nil, nil, fmt.Errorf("expected %d arguments, got %d", want, fs.NArg())
	}
	return &f, fs.Args(), nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, pos, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		return exitUsage
	}

	cfg := f.cfg
	if f.configPath != "" {
		file, err := config.Load(f.configPath)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitUsage
		}
		cfg = file.Merge(cfg)
	}
	cfg.Device = pos[0]
	if cfg.Device == "default" {
		cfg.Device = ""
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	level, _ := cfg.Level()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()

	tracks := []int(nil)
	if !f.toc {
		if tracks, err = parseTrack(pos[1]); err != nil {
			logger.Error().Err(err).Msg("invalid track")
			return exitUsage
		}
	}

	reg := prometheus.NewRegistry()
	metrics := rip.NewMetrics(reg)
	defer func() {
		if cfg.MetricsFile == "" {
			return
		}
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, reg); err != nil {
			logger.Error().Err(err).Str("path", cfg.MetricsFile).Msg("unable to write metrics")
		}
	}()

	if err := execute(ctx, f, cfg, tracks, metrics, stdout, logger); err != nil {
		logger.Error().Err(err).Str("kind", errorKind(err)).Msg("rip failed")
		return exitError
	}
	return exitOK
}

// parseTrack returns the requested track, or nil for "all".
func parseTrack(s string) ([]int, error) {
	if s == "all" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return nil, fmt.Errorf("track must be a positive number or \"all\", got %q", s)
	}
	return []int{n}, nil
}

func execute(ctx context.Context, f *flags, cfg config.Config, tracks []int, metrics *rip.Metrics, stdout io.Writer, logger zerolog.Logger) error {
	lm, _ := cfg.LibraryLogMode()
	opts := []cdparanoia.Option{cdparanoia.WithLogger(logger), cdparanoia.WithLogMode(lm)}
	if cfg.Speed != 0 {
		opts = append(opts, cdparanoia.WithSpeed(cfg.Speed))
	}
	logger.Debug().
		Str("paranoia", cdparanoia.Version()).
		Str("interface", cdparanoia.InterfaceVersion()).
		Msg("libcdparanoia")

	drive, err := openDrive(cfg.Device, opts...)
	if err != nil {
		return err
	}
	defer drive.Close()
	logger.Info().
		Str("model", drive.Model()).
		Stringer("type", drive.DriveType()).
		Str("interface", drive.InterfaceType().String()).
		Int("tracks", drive.TrackCount()).
		Msg("drive opened")
	if !drive.DriveType().CDDACapable() {
		logger.Warn().Stringer("type", drive.DriveType()).Msg("drive type does not support digital audio extraction, reads will likely fail")
	}

	if f.toc {
		return printTOC(stdout, drive)
	}

	if tracks == nil {
		for _, t := range drive.Tracks() {
			if t.Audio {
				tracks = append(tracks, t.Number)
			}
		}
	}

	r, err := drive.NewReader()
	if err != nil {
		return err
	}
	defer r.Close()

	if f.play {
		for _, n := range tracks {
			if err := play(ctx, r, n, logger); err != nil {
				return err
			}
		}
		return nil
	}

	ropts := rip.DefaultOptions()
	ropts.Mode, _ = cfg.ParanoiaMode()
	ropts.MaxRetries = cfg.MaxRetries
	ropts.Overlap = cfg.Overlap
	ropts.Logger = logger
	ropts.Metrics = metrics

	if cfg.Image != "" {
		return ripToImage(ctx, r, tracks, cfg.Image, f.name, ropts)
	}
	return ripToFiles(ctx, r, tracks, cfg.Output, ropts)
}

func printTOC(w io.Writer, drive *cdparanoia.Drive) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "track\tfirst\tlast\tlength\ttype\tcopy\tpreemph\t")
	for _, t := range drive.Tracks() {
		kind := "audio"
		if !t.Audio {
			kind = "data"
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\t%s\t%s\t\n",
			t.Number, t.FirstSector, t.LastSector, msf(t.LengthSectors()), kind,
			yesNo(t.CopyPermitted), yesNo(t.PreEmphasis))
	}
	return tw.Flush()
}

// msf formats a sector count as minutes:seconds.frames.
func msf(sectors int64) string {
	frames := sectors % cdparanoia.SectorsPerSecond
	secs := sectors / cdparanoia.SectorsPerSecond
	return fmt.Sprintf("%02d:%02d.%02d", secs/60, secs%60, frames)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func trackFileName(n int) string {
	return fmt.Sprintf("track%02d.wav", n)
}

// ripToFiles writes each track to its own file. A single track goes to
// out if given, several tracks go into the directory out.
func ripToFiles(ctx context.Context, r *cdparanoia.Reader, tracks []int, out string, opts rip.Options) error {
	for _, n := range tracks {
		path := trackFileName(n)
		switch {
		case len(tracks) == 1 && out != "":
			path = out
		case out != "":
			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}
			path = filepath.Join(out, path)
		}
		if err := ripToFile(ctx, r, n, path, opts); err != nil {
			return err
		}
	}
	return nil
}

func ripToFile(ctx context.Context, r *cdparanoia.Reader, n int, path string, opts rip.Options) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	res, err := rip.Track(ctx, r, n, f, opts)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	opts.Logger.Info().
		Str("path", path).
		Str("speed", fmt.Sprintf("%.1fx", res.Speed())).
		Msg("wrote track")
	return nil
}

func ripToImage(ctx context.Context, r *cdparanoia.Reader, tracks []int, path, name string, opts rip.Options) error {
	var total int64
	for _, n := range tracks {
		t, err := r.Drive().Track(n)
		if err != nil {
			return err
		}
		total += wav.HeaderSize + t.LengthBytes()
	}
	img, err := vfs.Create(path, vfs.ImageSize(total), name, opts.Logger)
	if err != nil {
		return err
	}
	defer img.Close()

	for _, n := range tracks {
		f, err := img.CreateTrack(n)
		if err != nil {
			return err
		}
		_, err = rip.Track(ctx, r, n, f, opts)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		opts.Logger.Info().Str("path", img.TrackPath(n)).Msg("wrote track")
	}
	return img.Close()
}

// errorKind names the failure for the log.
func errorKind(err error) string {
	for _, k := range []error{
		cdparanoia.ErrNotFound, cdparanoia.ErrOpenFailed, cdparanoia.ErrNoDisc, cdparanoia.ErrInvalidTrack,
		cdparanoia.ErrSeekOutOfRange, cdparanoia.ErrEndOfDisc, cdparanoia.ErrUnrecoverableRead, cdparanoia.ErrDriveIO,
		rip.ErrDataTrack, context.Canceled,
	} {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return "other"
}
