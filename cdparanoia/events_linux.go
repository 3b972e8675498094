//go:build linux && cgo

package cdparanoia

import "C"

//export goParanoiaEvent
func goParanoiaEvent(inpos C.long, function C.int) {
	readEvents = append(readEvents, Event{Type: EventType(function), Offset: int64(inpos)})
}
