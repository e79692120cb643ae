// Package frontier provides a durable, deduplicated list of crawl
// requests with ordered dispatch, in-flight tracking and snapshot
// persistence.
//
// A Frontier is built once from its sources and an optional persisted
// snapshot, then serves requests until every one has been handled:
//
//	f, err := frontier.Open(ctx,
//		frontier.WithURLs("https://example.com"),
//		frontier.WithStore(st),
//	)
//	if err != nil {
//		return err
//	}
//	defer f.Close()
//
//	for req := f.FetchNext(); req != nil; req = f.FetchNext() {
//		if err := process(req); err != nil {
//			f.Reclaim(req.Key)
//			continue
//		}
//		f.MarkHandled(req.Key)
//	}
package frontier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/crawlforge/frontier/internal/fetch"
	"github.com/crawlforge/frontier/internal/logger"
	"github.com/crawlforge/frontier/internal/metrics"
	"github.com/crawlforge/frontier/internal/persist"
	"github.com/crawlforge/frontier/internal/queue"
	"github.com/crawlforge/frontier/internal/sources"
	"github.com/crawlforge/frontier/internal/store"
)

// Frontier is the public handle over a built request list.
type Frontier struct {
	config  *Config
	log     *logger.Logger
	metrics *metrics.Collector

	store    store.Store
	ownStore bool

	fetcher   sources.Fetcher
	ownClient *fetch.Client

	snapshot *queue.Snapshot

	list  *queue.List
	saver *persist.Saver

	closeOnce sync.Once
	closeErr  error
}

// Open loads all sources, restores persisted state and returns a ready
// Frontier. The source order is fixed at this point; every later call
// observes the same deduplicated list.
func Open(ctx context.Context, opts ...Option) (*Frontier, error) {
	f := &Frontier{
		config:  DefaultConfig(),
		metrics: metrics.New(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		f.log = logger.Global()
	}
	log := f.log.WithComponent("frontier")

	if err := f.config.Validate(); err != nil {
		return nil, err
	}

	if f.store == nil && f.config.State.Enabled {
		s, err := openStore(&f.config.State)
		if err != nil {
			return nil, err
		}
		f.store = s
		f.ownStore = true
	}

	if f.fetcher == nil && hasRemoteSource(f.config.Sources) {
		f.ownClient = fetch.New(f.config.Fetch)
		f.fetcher = f.ownClient
	}

	builder := queue.NewBuilder(estimateSize(f.config.Sources), f.log)
	loader := sources.NewLoader(f.fetcher, f.metrics, f.log)
	if err := loader.Load(ctx, f.config.Sources, builder); err != nil {
		f.cleanup()
		return nil, err
	}

	snap := f.snapshot
	if snap == nil && f.store != nil {
		loaded, err := persist.LoadSnapshot(f.store, f.persistKey())
		if err != nil {
			f.cleanup()
			return nil, err
		}
		snap = loaded
	}

	list, err := builder.Build(snap)
	if err != nil {
		f.cleanup()
		return nil, err
	}
	f.list = list
	f.metrics.SetQueueLen(list.Len())
	f.metrics.SetInFlight(list.PendingCount())

	log.Event(logger.InfoLevel).
		Int("requests", list.Len()).
		Int("handled", list.HandledCount()).
		Int("in_flight", list.PendingCount()).
		Bool("resumed", snap != nil).
		Msg("Frontier ready")

	if f.store != nil && f.config.State.AutoSave {
		interval := time.Duration(f.config.State.Interval) * time.Second
		f.saver = persist.NewSaver(list, f.store, f.persistKey(), interval, f.metrics, f.log)
		f.saver.Start(ctx)
	}

	return f, nil
}

// FetchNext returns the next request to process, or nil when nothing is
// currently available. A nil result does not mean the queue is finished;
// reclaimed requests may still arrive. Check IsFinished.
func (f *Frontier) FetchNext() *queue.Request {
	req := f.list.FetchNext()
	if req != nil {
		f.metrics.RecordFetched()
		f.metrics.SetInFlight(f.list.PendingCount())
	}
	return req
}

// MarkHandled marks a dispatched request as successfully processed.
func (f *Frontier) MarkHandled(key string) error {
	if err := f.list.MarkHandled(key); err != nil {
		return err
	}
	f.metrics.RecordHandled()
	f.metrics.SetInFlight(f.list.PendingCount())
	return nil
}

// Reclaim returns a dispatched request to the queue for another attempt.
func (f *Frontier) Reclaim(key string) error {
	if err := f.list.Reclaim(key); err != nil {
		return err
	}
	f.metrics.RecordReclaimed()
	return nil
}

// IsEmpty reports whether there is nothing to fetch right now.
func (f *Frontier) IsEmpty() bool {
	return f.list.IsEmpty()
}

// IsFinished reports whether every request has been handled.
func (f *Frontier) IsFinished() bool {
	return f.list.IsFinished()
}

// Len returns the total number of unique requests in the list.
func (f *Frontier) Len() int {
	return f.list.Len()
}

// HandledCount returns the number of handled requests.
func (f *Frontier) HandledCount() int {
	return f.list.HandledCount()
}

// Snapshot returns the current persistable state.
func (f *Frontier) Snapshot() *queue.Snapshot {
	return f.list.Snapshot()
}

// Persist writes the current state to the store immediately. It is a
// no-op when persistence is disabled or the state is clean.
func (f *Frontier) Persist() error {
	if f.store == nil {
		return nil
	}
	if f.saver != nil {
		return f.saver.Save()
	}
	if !f.list.IsDirty() {
		return nil
	}
	snap, version := f.list.SnapshotVersion()
	if err := persist.SaveSnapshot(f.store, f.persistKey(), snap); err != nil {
		f.metrics.RecordPersist(false)
		return err
	}
	f.metrics.RecordPersist(true)
	f.list.MarkPersisted(version)
	return nil
}

// Stats returns a point-in-time copy of the collected metrics.
func (f *Frontier) Stats() metrics.Stats {
	return f.metrics.Snapshot()
}

// Close stops the autosave loop, performs a final persist and releases
// owned resources. Safe to call more than once.
func (f *Frontier) Close() error {
	f.closeOnce.Do(func() {
		if f.saver != nil {
			f.saver.Stop()
		}
		if err := f.Persist(); err != nil {
			f.closeErr = fmt.Errorf("final persist failed: %w", err)
		}
		f.cleanup()
	})
	return f.closeErr
}

func (f *Frontier) cleanup() {
	if f.ownClient != nil {
		f.ownClient.Close()
		f.ownClient = nil
	}
	if f.ownStore && f.store != nil {
		if err := f.store.Close(); err != nil && f.closeErr == nil {
			f.closeErr = err
		}
		f.store = nil
	}
}

func (f *Frontier) persistKey() string {
	if f.config.State.Key != "" {
		return f.config.State.Key
	}
	return DefaultPersistKey
}

func openStore(cfg *StateConfig) (store.Store, error) {
	switch cfg.Backend {
	case "bolt":
		return store.NewBoltStore(cfg.Path)
	case "file":
		return store.NewFileStore(cfg.Path, cfg.Compress), nil
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}

func hasRemoteSource(srcs []sources.Source) bool {
	for i := range srcs {
		if srcs[i].RequestsFromURL != "" {
			return true
		}
	}
	return false
}

func estimateSize(srcs []sources.Source) int {
	// Remote lists can be arbitrarily large; plain sources contribute
	// one request each.
	n := len(srcs)
	for i := range srcs {
		if srcs[i].RequestsFromURL != "" {
			n += 1000
		}
	}
	return n
}
