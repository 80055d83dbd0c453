package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aurabx/harmony-dsl/config"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 5s
  max_body_bytes: 4096

logging:
  level: debug
  format: console

audit:
  enabled: true
  dsn: ":memory:"

registry:
  service_type: [dicom, fhir]
  middleware_type: [transform]
`

	cfg := writeAndLoad(t, content)

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.MaxBodyBytes != 4096 {
		t.Errorf("MaxBodyBytes = %d, want 4096", cfg.Server.MaxBodyBytes)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("Logging = %+v, want debug/console", cfg.Logging)
	}
	if !cfg.Audit.Enabled || cfg.Audit.DSN != ":memory:" {
		t.Errorf("Audit = %+v", cfg.Audit)
	}

	reg := cfg.Registry.Resolver()
	if !reg.Resolve("service_type", "fhir") || !reg.Resolve("middleware_type", "transform") {
		t.Errorf("Registry.Resolver() = %v", reg.Map())
	}
	if reg.Resolve("service_type", "http") {
		t.Error("Registry resolved an undeclared name")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := writeAndLoad(t, "logging:\n  level: warn\n")

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default Host = %s, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 8686 {
		t.Errorf("default Port = %d, want 8686", cfg.Server.Port)
	}
	if cfg.Server.MaxBodyBytes != 1<<20 {
		t.Errorf("default MaxBodyBytes = %d, want 1 MiB", cfg.Server.MaxBodyBytes)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("default Format = %s, want json", cfg.Logging.Format)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("default Metrics = %+v, want enabled at /metrics", cfg.Metrics)
	}
	if cfg.Audit.Enabled {
		t.Error("audit should be disabled by default")
	}
	if cfg.Audit.DSN != "harmony-dsl.db" {
		t.Errorf("default DSN = %s, want harmony-dsl.db", cfg.Audit.DSN)
	}
	if cfg.Watch.Debounce != 200*time.Millisecond {
		t.Errorf("default Debounce = %v, want 200ms", cfg.Watch.Debounce)
	}
}

func TestLoad_MetricsDisabled(t *testing.T) {
	cfg := writeAndLoad(t, "metrics:\n  enabled: false\n")
	if cfg.Metrics.Enabled {
		t.Error("metrics.enabled: false was ignored")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_AUDIT_PATH", "/var/lib/harmony/audit.db")

	cfg := writeAndLoad(t, "audit:\n  dsn: ${TEST_AUDIT_PATH}\n")
	if cfg.Audit.DSN != "/var/lib/harmony/audit.db" {
		t.Errorf("DSN = %s, want expanded path", cfg.Audit.DSN)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HARMONY_SERVER_PORT", "9999")
	t.Setenv("HARMONY_LOG_LEVEL", "error")
	t.Setenv("HARMONY_METRICS_ENABLED", "no")
	t.Setenv("HARMONY_AUDIT_ENABLED", "yes")
	t.Setenv("HARMONY_WATCH_DEBOUNCE", "1s")

	cfg := writeAndLoad(t, "server:\n  port: 9090\nlogging:\n  level: debug\n")

	if cfg.Server.Port != 9999 {
		t.Errorf("Port = %d, want env override 9999", cfg.Server.Port)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Level = %s, want env override error", cfg.Logging.Level)
	}
	if cfg.Metrics.Enabled {
		t.Error("HARMONY_METRICS_ENABLED=no was ignored")
	}
	if !cfg.Audit.Enabled {
		t.Error("HARMONY_AUDIT_ENABLED=yes was ignored")
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("Debounce = %v, want 1s", cfg.Watch.Debounce)
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad port", "server:\n  port: 70000\n", "server.port"},
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"bad format", "logging:\n  format: xml\n", "logging.format"},
		{"bad metrics path", "metrics:\n  path: metrics\n", "metrics.path"},
		{"missing schema dir", "schemas:\n  dir: /does/not/exist\n", "schemas.dir"},
		{"empty registry name", "registry:\n  service_type: [\"\"]\n", "registry.service_type[0]"},
		{"not yaml", "server: [\n", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "harmony-dsl.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, err := config.Load(path)
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}

func TestLoadWithFallback(t *testing.T) {
	t.Run("file present", func(t *testing.T) {
		path := writeConfig(t, "server:\n  port: 7000\n")
		cfg, err := config.LoadWithFallback(path)
		if err != nil {
			t.Fatalf("LoadWithFallback() error = %v", err)
		}
		if cfg.Server.Port != 7000 {
			t.Errorf("Port = %d, want 7000", cfg.Server.Port)
		}
	})

	t.Run("file absent", func(t *testing.T) {
		t.Setenv("HARMONY_SERVER_PORT", "7100")
		cfg, err := config.LoadWithFallback(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("LoadWithFallback() error = %v", err)
		}
		if cfg.Server.Port != 7100 {
			t.Errorf("Port = %d, want 7100 from env", cfg.Server.Port)
		}
	})
}

func TestDefaults(t *testing.T) {
	cfg := config.Defaults()
	if cfg.Server.Addr() != "0.0.0.0:8686" {
		t.Errorf("Addr() = %s, want 0.0.0.0:8686", cfg.Server.Addr())
	}
	if !cfg.Metrics.Enabled {
		t.Error("Defaults() should enable metrics")
	}
}

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := config.Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return cfg
}
