package frontier

import (
	"time"

	"github.com/crawlforge/frontier/internal/logger"
	"github.com/crawlforge/frontier/internal/metrics"
	"github.com/crawlforge/frontier/internal/queue"
	"github.com/crawlforge/frontier/internal/sources"
	"github.com/crawlforge/frontier/internal/store"
)

// Option configures a Frontier before it is opened.
type Option func(*Frontier)

// WithConfig replaces the entire configuration.
func WithConfig(config *Config) Option {
	return func(f *Frontier) {
		f.config = config
	}
}

// WithSources appends source descriptors in order.
func WithSources(srcs ...sources.Source) Option {
	return func(f *Frontier) {
		f.config.Sources = append(f.config.Sources, srcs...)
	}
}

// WithURLs appends one plain source per URL, preserving order.
func WithURLs(urls ...string) Option {
	return func(f *Frontier) {
		for _, u := range urls {
			f.config.Sources = append(f.config.Sources, sources.Source{URL: u})
		}
	}
}

// WithRequestsFromURL appends a remote list source. Pattern may be empty
// to use the default URL pattern.
func WithRequestsFromURL(listURL, pattern string) Option {
	return func(f *Frontier) {
		f.config.Sources = append(f.config.Sources, sources.Source{
			RequestsFromURL: listURL,
			Pattern:         pattern,
		})
	}
}

// WithStore sets the state store. The caller keeps ownership; Close will
// not close a store supplied this way.
func WithStore(s store.Store) Option {
	return func(f *Frontier) {
		f.store = s
	}
}

// WithPersistKey overrides the snapshot key in the state store.
func WithPersistKey(key string) Option {
	return func(f *Frontier) {
		f.config.State.Key = key
	}
}

// WithSnapshot restores from an explicit snapshot instead of consulting
// the state store.
func WithSnapshot(snap *queue.Snapshot) Option {
	return func(f *Frontier) {
		f.snapshot = snap
	}
}

// WithFetcher sets the fetcher used for remote list sources.
func WithFetcher(fetcher sources.Fetcher) Option {
	return func(f *Frontier) {
		f.fetcher = fetcher
	}
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(f *Frontier) {
		f.log = log
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(f *Frontier) {
		f.metrics = collector
	}
}

// WithAutoSave enables or disables the periodic persist loop and sets
// its interval.
func WithAutoSave(enabled bool, interval time.Duration) Option {
	return func(f *Frontier) {
		f.config.State.AutoSave = enabled
		if interval > 0 {
			f.config.State.Interval = int(interval / time.Second)
		}
	}
}
