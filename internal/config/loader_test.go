package config_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/vocero/internal/config"
	"github.com/MrWong99/vocero/pkg/voice"
)

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":9090"
  log_level: debug
directory:
  ttl_seconds: 120
  source_timeout_seconds: 5
engines:
  native:
    command: espeak-ng
  ai:
    server_url: http://localhost:8020
    language: es
    timeout_seconds: 90
selection:
  ai_preferred_languages: [ja, ko]
defaults:
  voice: monica
  language: es
  rate: 1.2
  format: wav
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.ListenAddr != ":9090" || cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Directory.TTLSeconds != 120 || cfg.Directory.SourceTimeoutSeconds != 5 {
		t.Errorf("directory = %+v", cfg.Directory)
	}
	if cfg.Engines.AI.ServerURL != "http://localhost:8020" || cfg.Engines.AI.TimeoutSeconds != 90 {
		t.Errorf("ai engine = %+v", cfg.Engines.AI)
	}
	if len(cfg.Selection.AIPreferredLanguages) != 2 || cfg.Selection.AIPreferredLanguages[0] != voice.Japanese {
		t.Errorf("selection = %+v", cfg.Selection)
	}
	if cfg.Defaults.Voice != "monica" || cfg.Defaults.Rate != 1.2 {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
}

func TestLoadFromReader_EmptyKeepsDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	def := config.Default()
	if cfg.Server.ListenAddr != def.Server.ListenAddr {
		t.Errorf("listen_addr = %q, want default %q", cfg.Server.ListenAddr, def.Server.ListenAddr)
	}
	if cfg.Defaults.Language != voice.Spanish {
		t.Errorf("default language = %q, want es", cfg.Defaults.Language)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("server:\n  listen_adr: \":8080\"\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
engines:
  ai:
    server_url: "not a url"
defaults:
  rate: 5.0
  format: mp3
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, want := range []string{"server.log_level", "engines.ai.server_url", "defaults.rate", "defaults.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := config.Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
