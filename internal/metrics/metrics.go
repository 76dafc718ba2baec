package metrics

import "sync/atomic"

// Metrics captures operational counters across runs. Field counters are
// the operator-visible side channel for silently degraded values.
type Metrics struct {
	runsProcessed int64
	runsFailed    int64

	swappedCoords int64
	dummyCoords   int64
	missingCoords int64
	unparsedDates int64
}

// Snapshot is a consistent read-only view of the counters.
type Snapshot struct {
	RunsProcessed int64 `json:"runs_processed"`
	RunsFailed    int64 `json:"runs_failed"`
	SwappedCoords int64 `json:"swapped_coords"`
	DummyCoords   int64 `json:"dummy_coords"`
	MissingCoords int64 `json:"missing_coords"`
	UnparsedDates int64 `json:"unparsed_dates"`
}

// New creates a zeroed Metrics instance.
func New() *Metrics {
	return &Metrics{}
}

// RecordRun increments processed/failed counters based on outcome.
func (m *Metrics) RecordRun(err error) {
	atomic.AddInt64(&m.runsProcessed, 1)
	if err != nil {
		atomic.AddInt64(&m.runsFailed, 1)
	}
}

// AddFieldCounts accumulates per-run field degradation counts.
func (m *Metrics) AddFieldCounts(swapped, dummy, missing, unparsedDates int) {
	atomic.AddInt64(&m.swappedCoords, int64(swapped))
	atomic.AddInt64(&m.dummyCoords, int64(dummy))
	atomic.AddInt64(&m.missingCoords, int64(missing))
	atomic.AddInt64(&m.unparsedDates, int64(unparsedDates))
}

// Snapshot returns a read-only view of metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		RunsProcessed: atomic.LoadInt64(&m.runsProcessed),
		RunsFailed:    atomic.LoadInt64(&m.runsFailed),
		SwappedCoords: atomic.LoadInt64(&m.swappedCoords),
		DummyCoords:   atomic.LoadInt64(&m.dummyCoords),
		MissingCoords: atomic.LoadInt64(&m.missingCoords),
		UnparsedDates: atomic.LoadInt64(&m.unparsedDates),
	}
}
