package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/crawlforge/frontier/internal/dataset"
	"github.com/crawlforge/frontier/internal/errors"
	"github.com/crawlforge/frontier/internal/fetch"
	"github.com/crawlforge/frontier/internal/logger"
	"github.com/crawlforge/frontier/internal/metrics"
	"github.com/crawlforge/frontier/internal/persist"
	"github.com/crawlforge/frontier/internal/queue"
	"github.com/crawlforge/frontier/internal/shutdown"
	"github.com/crawlforge/frontier/internal/store"
	"github.com/crawlforge/frontier/pkg/frontier"
)

var (
	version = "1.0.0"

	// Global flags
	configFile string
	verbose    bool
	debug      bool

	// Run flags
	urls            []string
	requestsFromURL string
	urlPattern      string
	workers         int
	timeout         int
	rateLimit       float64
	maxRetries      int
	statePath       string
	stateBackend    string
	stateKey        string
	noAutoSave      bool
	datasetPath     string
	datasetBackend  string

	// Status flags
	statusStatePath string
	statusBackend   string
	statusKey       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "frontier",
		Short: "Frontier - Durable crawl request queue",
		Long: `Frontier - A durable, deduplicated crawl request queue.

Requests are collected from URL lists and remote sources, deduplicated,
and dispatched in order. Progress survives restarts through persisted
snapshots; interrupted or failed requests are reclaimed and retried.`,
		Version: version,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Process the request queue",
		Long:  "Build the queue from its sources, resume persisted progress and process every request.",
		RunE:  runRun,
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show persisted queue state",
		Long:  "Read the persisted snapshot and display queue progress.",
		RunE:  runStatus,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug mode")

	// Run flags
	runCmd.Flags().StringArrayVarP(&urls, "url", "u", nil, "Request URL (repeatable, order preserved)")
	runCmd.Flags().StringVar(&requestsFromURL, "requests-from-url", "", "Remote URL list to import")
	runCmd.Flags().StringVar(&urlPattern, "pattern", "", "Regex for extracting URLs from the remote list")
	runCmd.Flags().IntVarP(&workers, "workers", "w", 10, "Number of concurrent workers")
	runCmd.Flags().IntVarP(&timeout, "timeout", "t", 30, "Request timeout in seconds")
	runCmd.Flags().Float64VarP(&rateLimit, "rate-limit", "r", 50, "Requests per second")
	runCmd.Flags().IntVar(&maxRetries, "max-retries", 3, "Attempts per request before giving up")
	runCmd.Flags().StringVar(&statePath, "state", "frontier.db", "State store path")
	runCmd.Flags().StringVar(&stateBackend, "state-backend", "bolt", "State backend (bolt, file, memory)")
	runCmd.Flags().StringVar(&stateKey, "state-key", frontier.DefaultPersistKey, "Snapshot key in the state store")
	runCmd.Flags().BoolVar(&noAutoSave, "no-autosave", false, "Disable periodic state persistence")
	runCmd.Flags().StringVarP(&datasetPath, "output", "o", "", "Dataset path for fetch results")
	runCmd.Flags().StringVar(&datasetBackend, "output-backend", "file", "Dataset backend (file, bolt)")

	// Status flags
	statusCmd.Flags().StringVar(&statusStatePath, "state", "frontier.db", "State store path")
	statusCmd.Flags().StringVar(&statusBackend, "state-backend", "bolt", "State backend (bolt, file, memory)")
	statusCmd.Flags().StringVar(&statusKey, "state-key", frontier.DefaultPersistKey, "Snapshot key in the state store")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildConfig(cmd *cobra.Command) (*frontier.Config, error) {
	var config *frontier.Config

	if configFile != "" {
		fileConfig, err := frontier.LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
		config = fileConfig
	} else {
		config = frontier.DefaultConfig()
	}

	// Command-line flags take precedence over the config file.
	for _, u := range urls {
		config.Sources = append(config.Sources, frontier.SourceFromURL(u))
	}
	if requestsFromURL != "" {
		config.Sources = append(config.Sources, frontier.SourceFromRemoteList(requestsFromURL, urlPattern))
	}
	if cmd.Flags().Changed("workers") {
		config.Workers = workers
	}
	if cmd.Flags().Changed("timeout") {
		config.Fetch.Timeout = time.Duration(timeout) * time.Second
	}
	if cmd.Flags().Changed("rate-limit") {
		config.Fetch.RequestsPerSecond = rateLimit
	}
	if cmd.Flags().Changed("state") {
		config.State.Path = statePath
	}
	if cmd.Flags().Changed("state-backend") {
		config.State.Backend = stateBackend
	}
	if cmd.Flags().Changed("state-key") {
		config.State.Key = stateKey
	}
	if noAutoSave {
		config.State.AutoSave = false
	}
	if datasetPath != "" {
		config.Dataset.Enabled = true
		config.Dataset.Path = datasetPath
		config.Dataset.Backend = datasetBackend
	}
	config.Verbose = verbose
	config.Debug = debug

	return config, nil
}

func setupLogger(config *frontier.Config) *logger.Logger {
	level := logger.InfoLevel
	if config.Verbose {
		level = logger.DebugLevel
	}
	if config.Debug {
		level = logger.DebugLevel
	}
	log := logger.New(logger.Config{
		Level:  level,
		Pretty: true,
		Output: os.Stderr,
	})
	logger.SetGlobal(log)
	return log
}

// fetchRecord is one dataset row per processed request.
type fetchRecord struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	FinalURL    string `json:"final_url,omitempty"`
	StatusCode  int    `json:"status_code,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	DurationMS  int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
	FetchedAt   string `json:"fetched_at"`
}

func runRun(cmd *cobra.Command, args []string) error {
	config, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if len(config.Sources) == 0 {
		return fmt.Errorf("no sources configured: use --url, --requests-from-url or a config file")
	}
	log := setupLogger(config)

	handler := shutdown.New(shutdown.Config{
		Timeout: 30 * time.Second,
		Logger:  log,
	})
	ctx := handler.Context()

	collector := metrics.New()
	f, err := frontier.Open(ctx,
		frontier.WithConfig(config),
		frontier.WithLogger(log),
		frontier.WithMetrics(collector),
	)
	if err != nil {
		return fmt.Errorf("failed to open frontier: %w", err)
	}
	defer f.Close()

	handler.RegisterFunc("persist", func() {
		if err := f.Persist(); err != nil {
			log.WithError(err).Error("Final persist failed")
		}
	})

	var ds dataset.Dataset
	if config.Dataset.Enabled {
		ds, err = openDataset(&config.Dataset)
		if err != nil {
			return err
		}
		defer ds.Close()
	}

	client := fetch.New(config.Fetch)
	defer client.Close()

	start := time.Now()
	stats := processQueue(ctx, f, client, ds, collector, config.Workers, log)
	duration := time.Since(start)

	if ctx.Err() != nil {
		log.Warn("Interrupted, state persisted for resume")
	}
	printSummary(f, stats, duration)
	return nil
}

type runStats struct {
	mu        sync.Mutex
	succeeded int
	failed    int
	retried   int
}

// processQueue drains the frontier with a fixed worker pool. Each
// request is fetched, recorded, and either handled or reclaimed for
// another attempt up to the retry limit.
func processQueue(ctx context.Context, f *frontier.Frontier, client *fetch.Client, ds dataset.Dataset, collector *metrics.Collector, workers int, log *logger.Logger) *runStats {
	stats := &runStats{}
	attempts := &sync.Map{}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				req := f.FetchNext()
				if req == nil {
					if f.IsFinished() {
						return
					}
					// Requests are still in flight elsewhere; one of
					// them may be reclaimed.
					select {
					case <-ctx.Done():
						return
					case <-time.After(250 * time.Millisecond):
					}
					continue
				}
				processOne(ctx, f, client, ds, collector, req, attempts, stats, log)
			}
		}()
	}
	wg.Wait()
	return stats
}

func processOne(ctx context.Context, f *frontier.Frontier, client *fetch.Client, ds dataset.Dataset, collector *metrics.Collector, req *queue.Request, attempts *sync.Map, stats *runStats, log *logger.Logger) {
	rec := fetchRecord{
		Key:       req.Key,
		URL:       req.URL,
		FetchedAt: time.Now().UTC().Format(time.RFC3339),
	}

	result, err := client.Do(ctx, req.Method, req.URL, req.Headers)
	if err == nil && result.StatusCode >= 500 {
		err = errors.NewNetworkError(req.URL, "fetch", fmt.Errorf("server error %d", result.StatusCode))
	}
	if result != nil {
		rec.FinalURL = result.FinalURL
		rec.StatusCode = result.StatusCode
		rec.ContentType = result.ContentType
		rec.DurationMS = result.Duration.Milliseconds()
	}

	if err != nil {
		rec.Error = err.Error()
		collector.RecordFetchError()
		n, _ := attempts.LoadOrStore(req.Key, new(int))
		count := n.(*int)
		*count++

		// Interruption is not a request failure; leave it in flight so
		// the persisted snapshot reclaims it on resume.
		if ctx.Err() != nil {
			return
		}

		if *count < maxRetries && errors.IsTransient(err) {
			stats.mu.Lock()
			stats.retried++
			stats.mu.Unlock()
			log.WithKey(req.Key).WithError(err).Debugf("Reclaiming after attempt %d", *count)
			if rerr := f.Reclaim(req.Key); rerr == nil {
				return
			}
		}
		stats.mu.Lock()
		stats.failed++
		stats.mu.Unlock()
		log.WithKey(req.Key).WithError(err).Warn("Request failed")
	} else {
		stats.mu.Lock()
		stats.succeeded++
		stats.mu.Unlock()
	}

	if ds != nil {
		if derr := ds.Append(&rec); derr != nil {
			log.WithError(derr).Error("Failed to record result")
		}
	}
	if herr := f.MarkHandled(req.Key); herr != nil {
		log.WithKey(req.Key).WithError(herr).Error("Failed to mark request handled")
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openStatusStore()
	if err != nil {
		return err
	}
	defer s.Close()

	snap, err := persist.LoadSnapshot(s, statusKey)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if snap == nil {
		fmt.Println("No persisted state found")
		return nil
	}

	fmt.Printf("State:       %s (%s)\n", statusStatePath, statusBackend)
	fmt.Printf("Key:         %s\n", statusKey)
	fmt.Printf("Cursor:      %d\n", snap.Cursor)
	fmt.Printf("Next key:    %s\n", snap.NextKey)
	fmt.Printf("In flight:   %d\n", len(snap.InFlight))
	for _, key := range snap.InFlight {
		fmt.Printf("  %s\n", key)
	}
	return nil
}

func openDataset(cfg *frontier.DatasetConfig) (dataset.Dataset, error) {
	switch cfg.Backend {
	case "bolt":
		return dataset.NewBoltDataset(cfg.Path)
	case "file":
		return dataset.NewFileDataset(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown dataset backend %q", cfg.Backend)
	}
}

func openStatusStore() (store.Store, error) {
	switch statusBackend {
	case "bolt":
		return store.NewBoltStore(statusStatePath)
	case "file":
		return store.NewFileStore(statusStatePath, false), nil
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", statusBackend)
	}
}

func printSummary(f *frontier.Frontier, stats *runStats, duration time.Duration) {
	m := f.Stats()
	fmt.Println()
	fmt.Println("Run Summary")
	fmt.Println("-----------")
	fmt.Printf("Duration:    %v\n", duration.Round(time.Second))
	fmt.Printf("Requests:    %d\n", f.Len())
	fmt.Printf("Handled:     %d\n", f.HandledCount())
	fmt.Printf("Succeeded:   %d\n", stats.succeeded)
	fmt.Printf("Failed:      %d\n", stats.failed)
	fmt.Printf("Retried:     %d\n", stats.retried)
	fmt.Printf("Duplicates:  %d\n", m.DuplicatesDropped)
	fmt.Printf("Errors:      %d\n", m.FetchErrors)
	fmt.Printf("Persists:    %d ok, %d failed\n", m.PersistSuccess, m.PersistFailure)
	fmt.Println()
}
