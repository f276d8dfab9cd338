package boards

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Package boards contains the board scrape client and its source registry (YAML/JSON).

const (
	// Supported source types.
	TypePTT = "ptt"

	DefaultSourceID = "ptt"
	pttDefaultBase  = "https://www.ptt.cc"

	defaultRequestDelayMs = 500
)

// Source describes a board host the scrape client knows how to read.
type Source struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Type           string         `json:"type" yaml:"type"`
	BaseURL        string         `json:"base_url" yaml:"base_url"`
	RequestDelayMs int            `json:"request_delay_ms" yaml:"request_delay_ms"`
	Config         map[string]any `json:"config" yaml:"config"`
}

type sourcesFile struct {
	Sources []Source `json:"sources" yaml:"sources"`
}

// SourceRegistry holds the sources loaded from config plus the built-in defaults.
type SourceRegistry struct {
	mu  sync.RWMutex
	idx map[string]Source
}

// DefaultSources returns a registry containing only the built-in PTT source.
func DefaultSources() *SourceRegistry {
	reg := &SourceRegistry{idx: make(map[string]Source)}
	def := sanitizeSource(Source{
		ID:      DefaultSourceID,
		Name:    "PTT",
		Type:    TypePTT,
		BaseURL: pttDefaultBase,
	})
	reg.idx[def.ID] = def
	return reg
}

// LoadSources loads source definitions from file on top of the defaults. A
// missing file is not an error: the defaults are returned.
func LoadSources(path string) (*SourceRegistry, error) {
	reg := DefaultSources()

	path = strings.TrimSpace(path)
	if path == "" {
		return reg, nil
	}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return reg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	parsed, err := parseSources(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(parsed.Sources))
	for i := range parsed.Sources {
		src := sanitizeSource(parsed.Sources[i])
		if err := validateSource(src); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		if _, dup := seen[src.ID]; dup {
			return nil, fmt.Errorf("duplicate source id %q", src.ID)
		}
		seen[src.ID] = struct{}{}
		reg.idx[src.ID] = src
	}

	return reg, nil
}

func parseSources(data []byte, ext string) (sourcesFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if parsed, err := unmarshalSources(d.name, data, d.fn); err == nil {
			return parsed, nil
		}
	}

	return sourcesFile{}, errors.New("sources file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalSources(name string, data []byte, fn unmarshalFn) (sourcesFile, error) {
	var parsed sourcesFile
	if err := fn(data, &parsed); err != nil {
		return sourcesFile{}, fmt.Errorf("decode %s sources: %w", name, err)
	}
	return parsed, nil
}

func sanitizeSource(s Source) Source {
	s.ID = strings.ToLower(strings.TrimSpace(s.ID))
	s.Name = strings.TrimSpace(s.Name)
	s.Type = strings.ToLower(strings.TrimSpace(s.Type))
	s.BaseURL = strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")

	if s.Name == "" {
		s.Name = s.ID
	}
	if s.Type == TypePTT && s.BaseURL == "" {
		s.BaseURL = pttDefaultBase
	}
	if s.Config == nil {
		s.Config = map[string]any{}
	}
	if s.RequestDelayMs <= 0 {
		s.RequestDelayMs = defaultRequestDelayMs
	}

	return s
}

func validateSource(s Source) error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.Type == "" {
		return fmt.Errorf("type is required for source %q", s.ID)
	}
	if s.BaseURL == "" {
		return fmt.Errorf("base_url is required for source %q", s.ID)
	}
	return nil
}

// ByID returns the source registered under id.
func (r *SourceRegistry) ByID(id string) (Source, bool) {
	if r == nil {
		return Source{}, false
	}
	id = strings.ToLower(strings.TrimSpace(id))

	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.idx[id]
	return s, ok
}

// All returns every registered source sorted by id.
func (r *SourceRegistry) All() []Source {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	out := make([]Source, 0, len(r.idx))
	for _, s := range r.idx {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RequestDelay returns the pause between consecutive page requests for the source.
func (s Source) RequestDelay() time.Duration {
	if s.RequestDelayMs <= 0 {
		return time.Duration(defaultRequestDelayMs) * time.Millisecond
	}
	return time.Duration(s.RequestDelayMs) * time.Millisecond
}
