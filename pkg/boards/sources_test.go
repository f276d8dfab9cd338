package boards

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadSourcesYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sources.yaml")
	content := `
sources:
  - id: PTT-Mirror
    type: ptt
    base_url: https://mirror.example/
    request_delay_ms: 750
    config:
      user_agent: custom
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}

	reg, err := LoadSources(file)
	if err != nil {
		t.Fatalf("LoadSources returned error: %v", err)
	}

	src, ok := reg.ByID("ptt-mirror")
	if !ok {
		t.Fatalf("expected source ptt-mirror to be loaded")
	}
	if src.BaseURL != "https://mirror.example" {
		t.Fatalf("unexpected base_url: %s", src.BaseURL)
	}
	if src.RequestDelay() != 750*time.Millisecond {
		t.Fatalf("unexpected request delay: %v", src.RequestDelay())
	}
	if Headers(src)["User-Agent"] != "custom" {
		t.Fatalf("expected custom user agent header")
	}
	if _, ok := reg.ByID(DefaultSourceID); !ok {
		t.Fatalf("expected default source to remain registered")
	}
	if len(reg.All()) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(reg.All()))
	}
}

func TestLoadSourcesMissingFileFallsBackToDefaults(t *testing.T) {
	reg, err := LoadSources(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadSources: %v", err)
	}
	src, ok := reg.ByID("ptt")
	if !ok || src.BaseURL != pttDefaultBase {
		t.Fatalf("expected built-in ptt source, got %#v", src)
	}
}

func TestLoadSourcesDuplicateID(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sources.yaml")
	content := `
sources:
  - id: dup
    type: ptt
  - id: dup
    type: ptt
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}

	if _, err := LoadSources(file); err == nil {
		t.Fatalf("expected duplicate source error, got nil")
	}
}
