package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Hara602/tila/internal/model"
	"github.com/Hara602/tila/internal/sessiondb"
)

func TestParseFlags(t *testing.T) {
	cases := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, opts options)
	}{
		{"capture", nil, false, func(t *testing.T, opts options) {
			if len(opts.args) != 0 {
				t.Fatalf("args = %q", opts.args)
			}
		}},
		{"decode", []string{"/tmp/tila-3.log"}, false, func(t *testing.T, opts options) {
			if len(opts.args) != 1 || opts.args[0] != "/tmp/tila-3.log" {
				t.Fatalf("args = %q", opts.args)
			}
		}},
		{"overrides", []string{"--device", "k2", "--data-dir=/srv/logs", "--log-level", "debug"}, false, func(t *testing.T, opts options) {
			if opts.device != "k2" || opts.dataDir != "/srv/logs" || opts.logLevel != "debug" {
				t.Fatalf("opts = %+v", opts)
			}
		}},
		{"sessions", []string{"--sessions"}, false, func(t *testing.T, opts options) {
			if !opts.sessions {
				t.Fatalf("sessions flag not set")
			}
		}},
		{"too many paths", []string{"a.log", "b.log"}, true, nil},
		{"unknown flag", []string{"--compress"}, true, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts, _, err := parseFlags(tc.args, io.Discard)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			tc.check(t, opts)
		})
	}
}

func TestLoadConfigAppliesFlagOverrides(t *testing.T) {
	t.Setenv("TILA_CONFIG", "")
	cfg, err := loadConfig(options{device: "Logitech", dataDir: "/srv/logs", logLevel: "warn"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Device != "Logitech" || cfg.Paths.DataDir != "/srv/logs" || cfg.Log.Level != "warn" {
		t.Fatalf("cfg = %+v", cfg)
	}

	if _, err := loadConfig(options{logLevel: "chatty"}); err == nil {
		t.Fatalf("expected invalid log level to be rejected")
	}
}

func TestDeviceFlagRescuesEmptyConfigDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tila.yaml")
	if err := os.WriteFile(path, []byte("device: \"\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := loadConfig(options{configPath: path}); err == nil {
		t.Fatalf("expected empty device to be rejected without --device")
	}
	cfg, err := loadConfig(options{configPath: path, device: "keychron"})
	if err != nil {
		t.Fatalf("load with --device: %v", err)
	}
	if cfg.Device != "keychron" || cfg.Source != path {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestListSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")

	var out bytes.Buffer
	if err := listSessions(&out, path); err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if !strings.Contains(out.String(), "no capture sessions") {
		t.Fatalf("output = %q", out.String())
	}

	idx, err := sessiondb.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	start := time.Now().Add(-time.Hour)
	id, err := idx.Begin(sessiondb.Session{LogPath: "/data/tila/tila-0.log", Device: "keychron", DeviceIDs: []model.DeviceID{10}, StartedAt: start})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := idx.Finish(id, start.Add(time.Minute), 42, 2048, "completed"); err != nil {
		t.Fatalf("finish: %v", err)
	}
	idx.Close()

	out.Reset()
	if err := listSessions(&out, path); err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"tila-0.log", "completed", "42 records", "2.0 kB", "[10]"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in %q", want, out.String())
		}
	}
}
