package rip

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rabidaudio/cdrip/cdparanoia"
)

// Metrics counts ripping activity. A nil *Metrics records nothing.
type Metrics struct {
	SectorsRead    prometheus.Counter
	BytesWritten   prometheus.Counter
	ReadFailures   *prometheus.CounterVec
	ParanoiaEvents *prometheus.CounterVec
	TracksRipped   prometheus.Counter
	TrackDuration  prometheus.Histogram
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SectorsRead: f.NewCounter(prometheus.CounterOpts{
			Namespace: "cdrip",
			Name:      "sectors_read_total",
			Help:      "Total number of sectors read through the paranoia reader",
		}),
		BytesWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: "cdrip",
			Name:      "bytes_written_total",
			Help:      "Total number of PCM bytes written to WAV files",
		}),
		ReadFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cdrip",
			Name:      "read_failures_total",
			Help:      "Total number of failed sector reads, by kind",
		}, []string{"kind"}),
		ParanoiaEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cdrip",
			Name:      "paranoia_events_total",
			Help:      "Total number of progress callbacks issued by libcdparanoia, by event",
		}, []string{"event"}),
		TracksRipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "cdrip",
			Name:      "tracks_ripped_total",
			Help:      "Total number of tracks ripped completely",
		}),
		TrackDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cdrip",
			Name:      "track_duration_seconds",
			Help:      "Time taken to rip one track",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 8),
		}),
	}
}

func (m *Metrics) sectorRead() {
	if m == nil {
		return
	}
	m.SectorsRead.Inc()
	m.BytesWritten.Add(cdparanoia.BytesPerSector)
}

func (m *Metrics) event(ev cdparanoia.Event) {
	if m == nil {
		return
	}
	m.ParanoiaEvents.WithLabelValues(ev.Type.String()).Inc()
}

func (m *Metrics) readFailed(err error) {
	if m == nil {
		return
	}
	m.ReadFailures.WithLabelValues(failureKind(err)).Inc()
}

func (m *Metrics) trackDone(seconds float64) {
	if m == nil {
		return
	}
	m.TracksRipped.Inc()
	m.TrackDuration.Observe(seconds)
}

// failureKind names the error kind of a read failure.
func failureKind(err error) string {
	switch {
	case errors.Is(err, cdparanoia.ErrUnrecoverableRead):
		return "unrecoverable"
	case errors.Is(err, cdparanoia.ErrDriveIO):
		return "drive_io"
	case errors.Is(err, cdparanoia.ErrEndOfDisc):
		return "end_of_disc"
	case errors.Is(err, cdparanoia.ErrSeekOutOfRange):
		return "seek_out_of_range"
	case errors.Is(err, cdparanoia.ErrClosed):
		return "closed"
	default:
		return "other"
	}
}
