package persist

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crawlforge/frontier/internal/logger"
	"github.com/crawlforge/frontier/internal/metrics"
	"github.com/crawlforge/frontier/internal/queue"
	"github.com/crawlforge/frontier/internal/store"
)

// DefaultInterval is the default autosave cadence.
const DefaultInterval = 60 * time.Second

// Saver periodically persists a queue's snapshot while it is dirty. Write
// failures are logged and swallowed; the state stays dirty so the next
// tick retries. Stop unregisters the timer so it cannot outlive the queue.
type Saver struct {
	list     *queue.List
	store    store.Store
	key      string
	interval time.Duration
	metrics  *metrics.Collector
	log      *logger.Logger

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewSaver creates a saver persisting list state under key. Metrics may be
// nil.
func NewSaver(list *queue.List, s store.Store, key string, interval time.Duration, m *metrics.Collector, log *logger.Logger) *Saver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Saver{
		list:     list,
		store:    s,
		key:      key,
		interval: interval,
		metrics:  m,
		log:      log.WithComponent("persist"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the periodic persist loop. It returns immediately; the
// loop runs until Stop is called or ctx is cancelled.
func (s *Saver) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.started.Store(true)
		go s.run(ctx)
	})
}

func (s *Saver) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Failures leave the dirty flag set; nothing to do here.
			_ = s.Save()
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the periodic loop. It does not perform a final save; call
// Save explicitly on the shutdown path.
func (s *Saver) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	if s.started.Load() {
		<-s.done
	}
}

// Save persists the current snapshot if the queue state is dirty. The
// dirty flag clears only when the write succeeds and no mutation raced it.
func (s *Saver) Save() error {
	if !s.list.IsDirty() {
		return nil
	}

	snap, version := s.list.SnapshotVersion()
	err := SaveSnapshot(s.store, s.key, snap)

	s.log.PersistEvent(s.key, snap.Cursor, len(snap.InFlight), err)
	if s.metrics != nil {
		s.metrics.RecordPersist(err == nil)
	}
	if err != nil {
		return err
	}

	s.list.MarkPersisted(version)
	return nil
}
