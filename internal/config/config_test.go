package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tila.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvVar, "")
	t.Setenv("XDG_DATA_HOME", "/srv/data")
	t.Setenv("XDG_STATE_HOME", "/srv/state")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source != "<defaults>" {
		t.Fatalf("source = %q", cfg.Source)
	}
	if cfg.Device != "keychron" {
		t.Fatalf("device = %q", cfg.Device)
	}
	if cfg.Paths.DataDir != "/srv/data/tila" || cfg.Paths.Index != "/srv/state/tila/sessions.db" {
		t.Fatalf("paths = %+v", cfg.Paths)
	}
	if !reflect.DeepEqual(cfg.Commands.Test, []string{"xinput", "test", "{id}"}) {
		t.Fatalf("test command = %q", cfg.Commands.Test)
	}
	if cfg.Sink.BufferSize != 4096 {
		t.Fatalf("buffer size = %d", cfg.Sink.BufferSize)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
device: Logitech
paths:
  data_dir: /tmp/tila-logs
commands:
  test: [evtest-lines, "--device={id}"]
sink:
  buffer_size: 8192
log:
  level: debug
`)
	t.Setenv("XDG_STATE_HOME", "/srv/state")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source != path {
		t.Fatalf("source = %q", cfg.Source)
	}
	if cfg.Device != "Logitech" || cfg.Paths.DataDir != "/tmp/tila-logs" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Commands.List, []string{"xinput", "list"}) {
		t.Fatalf("list command should keep its default, got %q", cfg.Commands.List)
	}
	if cfg.Commands.Test[1] != "--device={id}" || cfg.Sink.BufferSize != 8192 || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	path := writeConfig(t, "device: k2\n")
	t.Setenv(EnvVar, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Device != "k2" || cfg.Source != path {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Device != "keychron" {
		t.Fatalf("device = %q", cfg.Device)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"unknown field":       "devices: keychron\n",
		"empty device":        "device: \"\"\n",
		"missing placeholder": "commands:\n  test: [xinput, test]\n",
		"buffer too large":    "sink:\n  buffer_size: 10000000\n",
		"bad log level":       "log:\n  level: loud\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	if got := expandHome("~/logs"); got != "/home/tester/logs" {
		t.Fatalf("expandHome = %q", got)
	}
	if got := expandHome("/abs/logs"); got != "/abs/logs" {
		t.Fatalf("expandHome = %q", got)
	}
}

func TestReadSkipsValidation(t *testing.T) {
	path := writeConfig(t, "device: \"\"\n")
	cfg, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if cfg.Device != "" {
		t.Fatalf("device = %q", cfg.Device)
	}
	cfg.Device = "k2"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate after override: %v", err)
	}
}
