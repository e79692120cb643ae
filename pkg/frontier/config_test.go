package frontier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/crawlforge/frontier/internal/sources"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()

	if err := c.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if c.Workers < 1 {
		t.Errorf("Workers = %d", c.Workers)
	}
	if c.State.Key != DefaultPersistKey {
		t.Errorf("State.Key = %q, want %q", c.State.Key, DefaultPersistKey)
	}
	if c.Fetch.Timeout <= 0 {
		t.Error("Fetch.Timeout not set")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"zero workers", func(c *Config) { c.Workers = 0 }, true},
		{"bad source", func(c *Config) {
			c.Sources = append(c.Sources, sources.Source{Method: "GET"})
		}, true},
		{"unknown state backend", func(c *Config) { c.State.Backend = "redis" }, true},
		{"state without path", func(c *Config) { c.State.Path = "" }, true},
		{"memory state without path", func(c *Config) {
			c.State.Backend = "memory"
			c.State.Path = ""
		}, false},
		{"disabled state ignores backend", func(c *Config) {
			c.State.Enabled = false
			c.State.Backend = "redis"
		}, false},
		{"dataset without path", func(c *Config) {
			c.Dataset.Enabled = true
			c.Dataset.Path = ""
		}, true},
		{"unknown dataset backend", func(c *Config) {
			c.Dataset.Enabled = true
			c.Dataset.Backend = "s3"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	content := `
sources:
  - url: https://example.com/start
  - requests_from_url: https://example.com/list.txt
    pattern: 'https://\S+'
fetch:
  user_agent: custom-agent/2.0
state:
  enabled: true
  backend: file
  path: ./state
  key: run42
workers: 4
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile error: %v", err)
	}
	if len(c.Sources) != 2 {
		t.Fatalf("Sources = %d, want 2", len(c.Sources))
	}
	if c.Sources[0].URL != "https://example.com/start" {
		t.Errorf("Sources[0].URL = %q", c.Sources[0].URL)
	}
	if c.Sources[1].RequestsFromURL != "https://example.com/list.txt" {
		t.Errorf("Sources[1].RequestsFromURL = %q", c.Sources[1].RequestsFromURL)
	}
	if c.Fetch.UserAgent != "custom-agent/2.0" {
		t.Errorf("Fetch.UserAgent = %q", c.Fetch.UserAgent)
	}
	if c.State.Backend != "file" || c.State.Key != "run42" {
		t.Errorf("State = %+v", c.State)
	}
	if c.Workers != 4 {
		t.Errorf("Workers = %d, want 4", c.Workers)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("loaded config invalid: %v", err)
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	content := `{
  "sources": [{"url": "https://example.com"}],
  "workers": 2
}`
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile error: %v", err)
	}
	if len(c.Sources) != 1 || c.Sources[0].URL != "https://example.com" {
		t.Errorf("Sources = %+v", c.Sources)
	}
	if c.Workers != 2 {
		t.Errorf("Workers = %d, want 2", c.Workers)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadFromFile accepted a missing file")
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	c := DefaultConfig()
	c.Sources = []sources.Source{{URL: "https://example.com"}}
	c.Workers = 7

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := c.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile error: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Workers != 7 {
		t.Errorf("Workers = %d, want 7", loaded.Workers)
	}
	if len(loaded.Sources) != 1 {
		t.Errorf("Sources = %+v", loaded.Sources)
	}
}
