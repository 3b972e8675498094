package cdparanoia

import (
	"fmt"
	"strings"
)

// Mode enables specific error checking features of the paranoia reader.
// Values match the PARANOIA_MODE_* constants of cdda_paranoia.h.
type Mode int

const (
	ModeDisable Mode = 0    // disable all error checking features
	ModeFull    Mode = 0xff // enable all error checking features

	ModeVerify    Mode = 1 << 0
	ModeFragment  Mode = 1 << 1
	ModeOverlap   Mode = 1 << 2
	ModeScratch   Mode = 1 << 3
	ModeRepair    Mode = 1 << 4
	ModeNeverSkip Mode = 1 << 5
)

var modeNames = []struct {
	mode Mode
	name string
}{
	{ModeVerify, "verify"},
	{ModeFragment, "fragment"},
	{ModeOverlap, "overlap"},
	{ModeScratch, "scratch"},
	{ModeRepair, "repair"},
	{ModeNeverSkip, "neverskip"},
}

// String renders the mode as "full", "disable" or a "|" separated list of
// individual features, e.g. "verify|neverskip".
func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeDisable:
		return "disable"
	}
	var parts []string
	rest := m
	for _, mn := range modeNames {
		if m&mn.mode != 0 {
			parts = append(parts, mn.name)
			rest &^= mn.mode
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", int(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseMode parses the textual form produced by [Mode.String]. Feature
// names may be separated by "|", "," or "+".
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "full", "":
		return ModeFull, nil
	case "disable", "none", "off":
		return ModeDisable, nil
	}
	var m Mode
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '|' || r == ',' || r == '+'
	})
	for _, f := range fields {
		f = strings.TrimSpace(f)
		found := false
		for _, mn := range modeNames {
			if mn.name == f {
				m |= mn.mode
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("cdparanoia: unknown paranoia mode %q", f)
		}
	}
	return m, nil
}

// EventType identifies a progress callback issued by the library while it
// reads and verifies a sector. Values match PARANOIA_CB_*.
type EventType int

const (
	EventRead         EventType = 0
	EventVerify       EventType = 1
	EventFixupEdge    EventType = 2
	EventFixupAtom    EventType = 3
	EventScratch      EventType = 4
	EventRepair       EventType = 5
	EventSkip         EventType = 6
	EventDrift        EventType = 7
	EventBackoff      EventType = 8
	EventOverlap      EventType = 9
	EventFixupDropped EventType = 10
	EventFixupDuped   EventType = 11
	EventReadErr      EventType = 12
	EventCacheErr     EventType = 13
)

func (e EventType) String() string {
	switch e {
	case EventRead:
		return "read"
	case EventVerify:
		return "verifying jitter"
	case EventFixupEdge:
		return "fixed edge jitter"
	case EventFixupAtom:
		return "fixed atom jitter"
	case EventScratch:
		return "scratch"
	case EventRepair:
		return "repair"
	case EventSkip:
		return "skip exhausted retry"
	case EventDrift:
		return "drift exhausted retry"
	case EventBackoff:
		return "backoff"
	case EventOverlap:
		return "dynamic overlap adjust"
	case EventFixupDropped:
		return "fixed dropped bytes"
	case EventFixupDuped:
		return "fixed duplicated bytes"
	case EventReadErr:
		return "read error"
	case EventCacheErr:
		return "cache error"
	default:
		return fmt.Sprintf("unknown event %d", int(e))
	}
}

// Event is one progress callback from the library.
type Event struct {
	Type EventType
	// Offset is the position the library was working on, in 16-bit
	// samples from the start of the disc.
	Offset int64
}

// Sector returns the sector that Offset falls in.
func (e Event) Sector() SectorAddress {
	return SectorAddress(e.Offset / SamplesPerSector)
}
