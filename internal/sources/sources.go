// Package sources expands a declarative source list into the flat ordered
// request sequence that populates the queue.
package sources

import (
	"context"
	"regexp"

	ferrors "github.com/crawlforge/frontier/internal/errors"
	"github.com/crawlforge/frontier/internal/logger"
	"github.com/crawlforge/frontier/internal/metrics"
	"github.com/crawlforge/frontier/internal/queue"
)

// DefaultPattern matches http(s)-prefixed tokens with a domain and optional
// port, path and query components. Used when a remote-list source does not
// supply its own pattern.
const DefaultPattern = `https?://(www\.)?[\p{L}0-9][-\p{L}0-9@:%._\+~#=]{0,254}[\p{L}0-9]\.[a-z]{2,63}(:\d{1,5})?(/[-\p{L}0-9@:%_\+.~#?&/=()]*)?`

var defaultRegexp = regexp.MustCompile(DefaultPattern)

// Source describes either a single literal request or a remote document to
// expand into many requests. Exactly one of URL and RequestsFromURL must be
// set. For remote lists, Method, Headers and UserData are shared fields
// merged into every extracted request.
type Source struct {
	// Literal request target.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Explicit identity key for a literal request; derived from Method and
	// URL when empty.
	Key string `json:"key,omitempty" yaml:"key,omitempty"`

	// Location of a remote document to extract request URLs from.
	RequestsFromURL string `json:"requests_from_url,omitempty" yaml:"requests_from_url,omitempty"`

	// Custom extraction pattern for the remote document.
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	Method   string                 `json:"method,omitempty" yaml:"method,omitempty"`
	Headers  map[string]string      `json:"headers,omitempty" yaml:"headers,omitempty"`
	UserData map[string]interface{} `json:"user_data,omitempty" yaml:"user_data,omitempty"`
}

// Validate checks the descriptor shape.
func (s *Source) Validate() error {
	if s.URL == "" && s.RequestsFromURL == "" {
		return ferrors.NewConfigError("", "sources", "source has neither url nor requests_from_url")
	}
	if s.URL != "" && s.RequestsFromURL != "" {
		return ferrors.NewConfigErrorf("", "sources",
			"source %q sets both url and requests_from_url", s.URL)
	}
	if s.Pattern != "" && s.RequestsFromURL == "" {
		return ferrors.NewConfigErrorf("", "sources",
			"source %q sets a pattern without requests_from_url", s.URL)
	}
	return nil
}

// Fetcher retrieves a remote document. The body is consumed via pattern
// extraction only.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Loader expands source descriptors into a queue builder.
type Loader struct {
	fetcher Fetcher
	metrics *metrics.Collector
	log     *logger.Logger
}

// NewLoader creates a loader. The fetcher may be nil when no source uses a
// remote list; metrics may be nil.
func NewLoader(fetcher Fetcher, m *metrics.Collector, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{
		fetcher: fetcher,
		metrics: m,
		log:     log.WithComponent("sources"),
	}
}

// Load expands srcs in order into b, preserving descriptor order and, within
// a remote list, document discovery order. A remote fetch failure is fatal:
// an empty or missing list would mean a silent crawl with zero work.
func (ld *Loader) Load(ctx context.Context, srcs []Source, b *queue.Builder) error {
	for i := range srcs {
		src := &srcs[i]
		if err := src.Validate(); err != nil {
			return err
		}

		if src.RequestsFromURL != "" {
			if err := ld.loadRemote(ctx, src, b); err != nil {
				return err
			}
			continue
		}

		added, err := b.Add(src.request(src.URL, src.Key))
		if err != nil {
			return err
		}
		if !added {
			ld.log.WithKey(src.Key).Debugf("Duplicate request dropped: %s", src.URL)
			if ld.metrics != nil {
				ld.metrics.RecordDuplicate()
			}
		}
	}
	return nil
}

// loadRemote fetches one remote list and imports every pattern match.
func (ld *Loader) loadRemote(ctx context.Context, src *Source, b *queue.Builder) error {
	if ld.fetcher == nil {
		return ferrors.NewConfigErrorf(src.RequestsFromURL, "sources",
			"source %q requires a fetcher", src.RequestsFromURL)
	}

	re := defaultRegexp
	if src.Pattern != "" {
		var err error
		re, err = regexp.Compile(src.Pattern)
		if err != nil {
			return ferrors.New(ferrors.Config, src.RequestsFromURL, "sources",
				"invalid extraction pattern", err)
		}
	}

	body, err := ld.fetcher.Fetch(ctx, src.RequestsFromURL)
	if err != nil {
		return ferrors.New(ferrors.Config, src.RequestsFromURL, "sources",
			"fetching remote request list failed", err)
	}

	matches := re.FindAllString(string(body), -1)

	imported := 0
	for _, m := range matches {
		added, err := b.Add(src.request(m, ""))
		if err != nil {
			return err
		}
		if added {
			imported++
		}
	}

	fetched := len(matches)
	ld.log.SourceLoadedEvent(src.RequestsFromURL, fetched, imported, fetched-imported)
	if ld.metrics != nil {
		ld.metrics.RecordSourceLoaded(imported, fetched-imported)
	}
	return nil
}

// request constructs one Request from the descriptor's shared fields. Maps
// are copied so consumers mutating one request's payload do not bleed into
// its siblings.
func (s *Source) request(url, key string) *queue.Request {
	r := &queue.Request{
		Key:    key,
		URL:    url,
		Method: s.Method,
	}
	if len(s.Headers) > 0 {
		r.Headers = make(map[string]string, len(s.Headers))
		for k, v := range s.Headers {
			r.Headers[k] = v
		}
	}
	if len(s.UserData) > 0 {
		r.UserData = make(map[string]interface{}, len(s.UserData))
		for k, v := range s.UserData {
			r.UserData[k] = v
		}
	}
	return r
}
