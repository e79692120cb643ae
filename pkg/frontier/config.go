package frontier

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/crawlforge/frontier/internal/fetch"
	"github.com/crawlforge/frontier/internal/sources"
)

// DefaultPersistKey is the state store key used when none is configured.
const DefaultPersistKey = "frontier_state"

// StateConfig controls queue state persistence.
type StateConfig struct {
	// Enabled turns persistence on.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Backend selects the store: "bolt", "file" or "memory".
	Backend string `json:"backend" yaml:"backend"`

	// Path is the bolt database file or the file store directory.
	Path string `json:"path" yaml:"path"`

	// Key is the persistence key for this queue's snapshot.
	Key string `json:"key" yaml:"key"`

	// Compress enables gzip for the file backend.
	Compress bool `json:"compress" yaml:"compress"`

	// AutoSave starts the periodic persist loop.
	AutoSave bool `json:"auto_save" yaml:"auto_save"`

	// Interval is the autosave cadence in seconds.
	Interval int `json:"interval" yaml:"interval"`
}

// DatasetConfig controls append-only result storage.
type DatasetConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Backend selects the dataset: "bolt" or "file" (JSON lines).
	Backend string `json:"backend" yaml:"backend"`

	Path string `json:"path" yaml:"path"`
}

// Config holds all frontier configuration.
type Config struct {
	// Sources is the ordered list of source descriptors.
	Sources []sources.Source `json:"sources" yaml:"sources"`

	// Fetch configures the HTTP client used for remote lists and request
	// processing.
	Fetch fetch.Config `json:"fetch" yaml:"fetch"`

	// State configures snapshot persistence.
	State StateConfig `json:"state" yaml:"state"`

	// Dataset configures result storage for the worker loop.
	Dataset DatasetConfig `json:"dataset" yaml:"dataset"`

	// Workers is the number of concurrent consumers in the run loop.
	Workers int `json:"workers" yaml:"workers"`

	// Verbose logging
	Verbose bool `json:"verbose" yaml:"verbose"`

	// Debug mode
	Debug bool `json:"debug" yaml:"debug"`
}

// SourceFromURL returns a plain source for a single URL.
func SourceFromURL(url string) sources.Source {
	return sources.Source{URL: url}
}

// SourceFromRemoteList returns a remote list source. Pattern may be
// empty to use the default URL pattern.
func SourceFromRemoteList(listURL, pattern string) sources.Source {
	return sources.Source{RequestsFromURL: listURL, Pattern: pattern}
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Fetch: fetch.DefaultConfig(),
		State: StateConfig{
			Enabled:  true,
			Backend:  "bolt",
			Path:     "frontier.db",
			Key:      DefaultPersistKey,
			AutoSave: true,
			Interval: 60,
		},
		Dataset: DatasetConfig{
			Enabled: false,
			Backend: "file",
			Path:    "dataset.jsonl",
		},
		Workers: 10,
	}
}

// LoadFromFile loads configuration from a file (YAML or JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return config, nil
}

// SaveToFile saves configuration to a file.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for i := range c.Sources {
		if err := c.Sources[i].Validate(); err != nil {
			return err
		}
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}

	if c.State.Enabled {
		switch c.State.Backend {
		case "bolt", "file", "memory":
		default:
			return fmt.Errorf("unknown state backend %q", c.State.Backend)
		}
		if c.State.Backend != "memory" && c.State.Path == "" {
			return fmt.Errorf("state backend %q requires a path", c.State.Backend)
		}
	}

	if c.Dataset.Enabled {
		switch c.Dataset.Backend {
		case "bolt", "file":
		default:
			return fmt.Errorf("unknown dataset backend %q", c.Dataset.Backend)
		}
		if c.Dataset.Path == "" {
			return fmt.Errorf("dataset backend %q requires a path", c.Dataset.Backend)
		}
	}

	return nil
}
