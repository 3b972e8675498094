// Package config loads ripper settings from a Jsonnet file.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/go-jsonnet"
	"github.com/rabidaudio/cdrip/cdparanoia"
	"github.com/rs/zerolog"
)

// Config holds every setting the command line can also supply. Zero
// values mean "not set".
type Config struct {
	Device      string `json:"device"`
	Mode        string `json:"mode"`
	MaxRetries  int    `json:"maxRetries"`
	Overlap     int    `json:"overlap"`
	Speed       int    `json:"speed"`
	LogLevel    string `json:"logLevel"`
	LibraryLog  string `json:"libraryLog"`
	Output      string `json:"output"`
	Image       string `json:"image"`
	MetricsFile string `json:"metricsFile"`
}

// Load reads a Jsonnet file, evaluates it and unmarshals the output.
// Path "-" reads from stdin. The environment of the current process is
// available through std.extVar().
func Load(path string) (Config, error) {
	var input []byte
	var err error
	if path == "-" {
		input, err = io.ReadAll(os.Stdin)
	} else {
		input, err = os.ReadFile(path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	return Evaluate(path, string(input), os.Environ())
}

// Evaluate evaluates Jsonnet source with the given KEY=VALUE environment
// exposed as external variables.
func Evaluate(filename, source string, env []string) (Config, error) {
	vm := jsonnet.MakeVM()
	for _, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return Config{}, fmt.Errorf("config: invalid environment variable %q", kv)
		}
		vm.ExtVar(k, v)
	}

	output, err := vm.EvaluateAnonymousSnippet(filename, source)
	if err != nil {
		return Config{}, fmt.Errorf("config: failed to evaluate: %w", err)
	}

	var c Config
	dec := json.NewDecoder(bytes.NewReader([]byte(output)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("config: failed to unmarshal: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks that the settings parse.
func (c Config) Validate() error {
	if _, err := c.ParanoiaMode(); err != nil {
		return fmt.Errorf("config: mode: %w", err)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config: maxRetries must not be negative, got %d", c.MaxRetries)
	}
	if c.Overlap < 0 || c.Overlap > cdparanoia.MaxOverlap {
		return fmt.Errorf("config: overlap must be within 0..%d, got %d", cdparanoia.MaxOverlap, c.Overlap)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("config: logLevel: %w", err)
	}
	if _, err := c.LibraryLogMode(); err != nil {
		return fmt.Errorf("config: libraryLog: %w", err)
	}
	return nil
}

// ParanoiaMode parses Mode, full paranoia if unset.
func (c Config) ParanoiaMode() (cdparanoia.Mode, error) {
	return cdparanoia.ParseMode(c.Mode)
}

// Level parses LogLevel, info if unset.
func (c Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(c.LogLevel)
}

// LibraryLogMode parses LibraryLog, which directs libcdparanoia's own
// messages. It defaults to forwarding them to the logger.
func (c Config) LibraryLogMode() (cdparanoia.LogMode, error) {
	switch strings.ToLower(c.LibraryLog) {
	case "", "logger":
		return cdparanoia.LogModeLogger, nil
	case "stderr":
		return cdparanoia.LogModeStdErr, nil
	case "silent":
		return cdparanoia.LogModeSilent, nil
	default:
		return 0, fmt.Errorf("unknown library log mode %q", c.LibraryLog)
	}
}

// Merge returns c with the non-zero fields of override applied on top.
func (c Config) Merge(override Config) Config {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Device, override.Device)
	set(&c.Mode, override.Mode)
	set(&c.LogLevel, override.LogLevel)
	set(&c.LibraryLog, override.LibraryLog)
	set(&c.Output, override.Output)
	set(&c.Image, override.Image)
	set(&c.MetricsFile, override.MetricsFile)
	if override.MaxRetries != 0 {
		c.MaxRetries = override.MaxRetries
	}
	if override.Overlap != 0 {
		c.Overlap = override.Overlap
	}
	if override.Speed != 0 {
		c.Speed = override.Speed
	}
	return c
}
