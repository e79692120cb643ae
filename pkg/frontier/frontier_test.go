package frontier

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	ferrors "github.com/crawlforge/frontier/internal/errors"
	"github.com/crawlforge/frontier/internal/logger"
	"github.com/crawlforge/frontier/internal/queue"
	"github.com/crawlforge/frontier/internal/store"
)

func openTest(t *testing.T, opts ...Option) *Frontier {
	t.Helper()
	opts = append(opts, WithLogger(logger.Nop()))
	f, err := Open(context.Background(), opts...)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestOpen_PlainSources(t *testing.T) {
	f := openTest(t,
		WithURLs("https://example.com/a", "https://example.com/b"),
		WithStore(store.NewMemoryStore()),
	)

	if f.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", f.Len())
	}

	r := f.FetchNext()
	if r == nil || r.URL != "https://example.com/a" {
		t.Fatalf("FetchNext() = %v, want first source", r)
	}
	if err := f.MarkHandled(r.Key); err != nil {
		t.Fatal(err)
	}

	r = f.FetchNext()
	if r == nil || r.URL != "https://example.com/b" {
		t.Fatalf("FetchNext() = %v, want second source", r)
	}
	if err := f.MarkHandled(r.Key); err != nil {
		t.Fatal(err)
	}

	if !f.IsFinished() {
		t.Error("IsFinished() = false after handling everything")
	}
}

func TestOpen_NoSources(t *testing.T) {
	f := openTest(t, WithStore(store.NewMemoryStore()))

	if f.Len() != 0 {
		t.Errorf("Len() = %d, want 0", f.Len())
	}
	if r := f.FetchNext(); r != nil {
		t.Errorf("FetchNext() = %v, want nil", r)
	}
	if !f.IsEmpty() || !f.IsFinished() {
		t.Error("empty frontier must be empty and finished")
	}
}

func TestOpen_RemoteList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "https://example.com/one")
		fmt.Fprintln(w, "https://example.com/two")
		fmt.Fprintln(w, "https://example.com/one") // duplicate
	}))
	defer server.Close()

	f := openTest(t,
		WithURLs("https://example.com/seed"),
		WithRequestsFromURL(server.URL, ""),
		WithStore(store.NewMemoryStore()),
	)

	// Seed first, then the two unique remote entries.
	if f.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", f.Len())
	}
	if r := f.FetchNext(); r == nil || r.URL != "https://example.com/seed" {
		t.Errorf("FetchNext() = %v, want the seed first", r)
	}
	if got := f.Stats().DuplicatesDropped; got != 1 {
		t.Errorf("DuplicatesDropped = %d, want 1", got)
	}
}

func TestOpen_RemoteListFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := Open(context.Background(),
		WithRequestsFromURL(server.URL, ""),
		WithStore(store.NewMemoryStore()),
		WithLogger(logger.Nop()),
	)
	if err == nil {
		t.Fatal("Open succeeded without knowing its work")
	}
	if !ferrors.IsConfig(err) {
		t.Errorf("error type = %v, want config", err)
	}
}

func TestFrontier_ResumeAcrossRestart(t *testing.T) {
	shared := store.NewMemoryStore()
	urls := []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
		"https://example.com/d",
	}

	// First run: handle a, leave b and c in flight, never reach d.
	f1 := openTest(t, WithURLs(urls...), WithStore(shared))

	a := f1.FetchNext()
	b := f1.FetchNext()
	c := f1.FetchNext()
	if err := f1.MarkHandled(a.Key); err != nil {
		t.Fatal(err)
	}
	if err := f1.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	// Second run against the same store and sources.
	f2 := openTest(t, WithURLs(urls...), WithStore(shared))

	// The interrupted in-flight requests come back first.
	recovered := map[string]bool{}
	for i := 0; i < 2; i++ {
		r := f2.FetchNext()
		if r == nil {
			t.Fatal("FetchNext() = nil while recovering in-flight work")
		}
		recovered[r.Key] = true
		if err := f2.MarkHandled(r.Key); err != nil {
			t.Fatal(err)
		}
	}
	if !recovered[b.Key] || !recovered[c.Key] {
		t.Fatalf("recovered = %v, want %q and %q", recovered, b.Key, c.Key)
	}

	// Then the cursor resumes past the handled prefix.
	r := f2.FetchNext()
	if r == nil || r.URL != "https://example.com/d" {
		t.Fatalf("FetchNext() = %v, want d", r)
	}
	if err := f2.MarkHandled(r.Key); err != nil {
		t.Fatal(err)
	}

	if r := f2.FetchNext(); r != nil {
		t.Errorf("FetchNext() = %v, want nil; a must not be re-dispatched", r)
	}
	if !f2.IsFinished() {
		t.Error("IsFinished() = false after the resumed run drained")
	}
}

func TestFrontier_ResumeRejectsChangedSources(t *testing.T) {
	shared := store.NewMemoryStore()

	f1 := openTest(t,
		WithURLs("https://example.com/a", "https://example.com/b", "https://example.com/c"),
		WithStore(shared),
	)
	f1.FetchNext()
	if err := f1.Close(); err != nil {
		t.Fatal(err)
	}

	// The list shrank between runs; the snapshot cannot be trusted.
	_, err := Open(context.Background(),
		WithURLs("https://example.com/a", "https://example.com/x"),
		WithStore(shared),
		WithLogger(logger.Nop()),
	)
	if err == nil {
		t.Fatal("Open accepted a snapshot inconsistent with the sources")
	}
	if !ferrors.IsConfig(err) {
		t.Errorf("error type = %v, want config", err)
	}
}

func TestFrontier_ExplicitSnapshot(t *testing.T) {
	urls := []string{"https://example.com/a", "https://example.com/b"}
	snap := &queue.Snapshot{
		Cursor:   1,
		NextKey:  "https://example.com/b",
		InFlight: []string{"https://example.com/a"},
	}

	f := openTest(t,
		WithURLs(urls...),
		WithStore(store.NewMemoryStore()),
		WithSnapshot(snap),
	)

	if r := f.FetchNext(); r == nil || r.Key != "https://example.com/a" {
		t.Errorf("FetchNext() = %v, want the in-flight request first", r)
	}
	if r := f.FetchNext(); r == nil || r.Key != "https://example.com/b" {
		t.Errorf("FetchNext() = %v, want b", r)
	}
}

func TestFrontier_ReclaimFlow(t *testing.T) {
	f := openTest(t,
		WithURLs("https://example.com/a", "https://example.com/b"),
		WithStore(store.NewMemoryStore()),
	)

	r := f.FetchNext()
	if err := f.Reclaim(r.Key); err != nil {
		t.Fatal(err)
	}

	again := f.FetchNext()
	if again == nil || again.Key != r.Key {
		t.Fatalf("FetchNext() = %v, want reclaimed %q first", again, r.Key)
	}

	stats := f.Stats()
	if stats.RequestsReclaimed != 1 {
		t.Errorf("RequestsReclaimed = %d, want 1", stats.RequestsReclaimed)
	}
}

func TestFrontier_PersistWritesSnapshot(t *testing.T) {
	shared := store.NewMemoryStore()
	f := openTest(t,
		WithURLs("https://example.com/a", "https://example.com/b"),
		WithStore(shared),
		WithPersistKey("custom_key"),
		WithAutoSave(false, 0),
	)

	f.FetchNext()
	if err := f.Persist(); err != nil {
		t.Fatalf("Persist error: %v", err)
	}

	data, err := shared.Get("custom_key")
	if err != nil {
		t.Fatal(err)
	}
	if data == nil {
		t.Fatal("nothing persisted under the configured key")
	}

	stats := f.Stats()
	if stats.PersistSuccess != 1 {
		t.Errorf("PersistSuccess = %d, want 1", stats.PersistSuccess)
	}
}

func TestFrontier_CloseIdempotent(t *testing.T) {
	f := openTest(t,
		WithURLs("https://example.com/a"),
		WithStore(store.NewMemoryStore()),
	)

	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second Close error: %v", err)
	}
}
