package metrics

import (
	"sync"
	"testing"
)

func TestCollector_Counters(t *testing.T) {
	c := New()

	c.RecordFetched()
	c.RecordFetched()
	c.RecordHandled()
	c.RecordReclaimed()
	c.RecordDuplicate()
	c.RecordFetchError()
	c.RecordPersist(true)
	c.RecordPersist(true)
	c.RecordPersist(false)
	c.RecordSourceLoaded(10, 3)

	s := c.Snapshot()
	if s.RequestsFetched != 2 {
		t.Errorf("RequestsFetched = %d, want 2", s.RequestsFetched)
	}
	if s.RequestsHandled != 1 {
		t.Errorf("RequestsHandled = %d, want 1", s.RequestsHandled)
	}
	if s.RequestsReclaimed != 1 {
		t.Errorf("RequestsReclaimed = %d, want 1", s.RequestsReclaimed)
	}
	if s.SourcesLoaded != 1 {
		t.Errorf("SourcesLoaded = %d, want 1", s.SourcesLoaded)
	}
	if s.RequestsImported != 10 {
		t.Errorf("RequestsImported = %d, want 10", s.RequestsImported)
	}
	if s.DuplicatesDropped != 4 {
		t.Errorf("DuplicatesDropped = %d, want 4", s.DuplicatesDropped)
	}
	if s.PersistSuccess != 2 || s.PersistFailure != 1 {
		t.Errorf("Persist = %d/%d, want 2/1", s.PersistSuccess, s.PersistFailure)
	}
	if s.FetchErrors != 1 {
		t.Errorf("FetchErrors = %d, want 1", s.FetchErrors)
	}
}

func TestCollector_Gauges(t *testing.T) {
	c := New()

	c.SetQueueLen(120)
	c.SetInFlight(7)
	c.SetInFlight(4)

	s := c.Snapshot()
	if s.QueueLen != 120 {
		t.Errorf("QueueLen = %d, want 120", s.QueueLen)
	}
	if s.InFlight != 4 {
		t.Errorf("InFlight = %d, want 4", s.InFlight)
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.RecordFetched()
				c.RecordHandled()
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.RequestsFetched != 1000 {
		t.Errorf("RequestsFetched = %d, want 1000", s.RequestsFetched)
	}
	if s.RequestsHandled != 1000 {
		t.Errorf("RequestsHandled = %d, want 1000", s.RequestsHandled)
	}
}
