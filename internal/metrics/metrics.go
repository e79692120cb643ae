// Package metrics provides metrics collection for the frontier.
package metrics

import (
	"sync/atomic"
	"time"
)

// Collector collects and aggregates frontier metrics.
type Collector struct {
	// Counters
	requestsFetched   atomic.Int64
	requestsHandled   atomic.Int64
	requestsReclaimed atomic.Int64
	sourcesLoaded     atomic.Int64
	requestsImported  atomic.Int64
	duplicatesDropped atomic.Int64
	persistSuccess    atomic.Int64
	persistFailure    atomic.Int64
	fetchErrors       atomic.Int64

	// Gauges
	queueLen atomic.Int64
	inFlight atomic.Int64

	startTime time.Time
}

// New creates a new metrics collector.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// RecordFetched increments dispatched requests.
func (c *Collector) RecordFetched() {
	c.requestsFetched.Add(1)
}

// RecordHandled increments completed requests.
func (c *Collector) RecordHandled() {
	c.requestsHandled.Add(1)
}

// RecordReclaimed increments reclaimed requests.
func (c *Collector) RecordReclaimed() {
	c.requestsReclaimed.Add(1)
}

// RecordSourceLoaded records the import counts for one expanded source.
func (c *Collector) RecordSourceLoaded(imported, duplicates int) {
	c.sourcesLoaded.Add(1)
	c.requestsImported.Add(int64(imported))
	c.duplicatesDropped.Add(int64(duplicates))
}

// RecordDuplicate increments dropped duplicate keys.
func (c *Collector) RecordDuplicate() {
	c.duplicatesDropped.Add(1)
}

// RecordPersist records a state persist attempt.
func (c *Collector) RecordPersist(ok bool) {
	if ok {
		c.persistSuccess.Add(1)
	} else {
		c.persistFailure.Add(1)
	}
}

// RecordFetchError increments transport errors.
func (c *Collector) RecordFetchError() {
	c.fetchErrors.Add(1)
}

// SetQueueLen sets the total queue length gauge.
func (c *Collector) SetQueueLen(n int) {
	c.queueLen.Store(int64(n))
}

// SetInFlight sets the in-flight gauge.
func (c *Collector) SetInFlight(n int) {
	c.inFlight.Store(int64(n))
}

// Stats is a point-in-time view of the collected metrics.
type Stats struct {
	RequestsFetched   int64         `json:"requests_fetched"`
	RequestsHandled   int64         `json:"requests_handled"`
	RequestsReclaimed int64         `json:"requests_reclaimed"`
	SourcesLoaded     int64         `json:"sources_loaded"`
	RequestsImported  int64         `json:"requests_imported"`
	DuplicatesDropped int64         `json:"duplicates_dropped"`
	PersistSuccess    int64         `json:"persist_success"`
	PersistFailure    int64         `json:"persist_failure"`
	FetchErrors       int64         `json:"fetch_errors"`
	QueueLen          int64         `json:"queue_len"`
	InFlight          int64         `json:"in_flight"`
	Uptime            time.Duration `json:"uptime"`
}

// Snapshot returns the current statistics.
func (c *Collector) Snapshot() Stats {
	return Stats{
		RequestsFetched:   c.requestsFetched.Load(),
		RequestsHandled:   c.requestsHandled.Load(),
		RequestsReclaimed: c.requestsReclaimed.Load(),
		SourcesLoaded:     c.sourcesLoaded.Load(),
		RequestsImported:  c.requestsImported.Load(),
		DuplicatesDropped: c.duplicatesDropped.Load(),
		PersistSuccess:    c.persistSuccess.Load(),
		PersistFailure:    c.persistFailure.Load(),
		FetchErrors:       c.fetchErrors.Load(),
		QueueLen:          c.queueLen.Load(),
		InFlight:          c.inFlight.Load(),
		Uptime:            time.Since(c.startTime),
	}
}
