package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "READ_TIMEOUT", "FETCH_TIMEOUT", "VIEWER_SCENE", "VIEWER_REMOTE_HOSTS", "STRUCTURE_BUILDER_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "3000" || cfg.Environment != "development" || cfg.ReadTimeout != 10 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.FetchTimeout != 10*time.Second {
		t.Fatalf("fetch timeout = %v", cfg.FetchTimeout)
	}
	if cfg.DefaultScene != "" || cfg.StructureBuilderURL != "" || len(cfg.RemoteHosts) != 0 {
		t.Fatalf("optional settings should default to empty: %+v", cfg)
	}
	if got := cfg.PortOr("3001"); got != "3001" {
		t.Fatalf("PortOr = %q", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("READ_TIMEOUT", "30")
	t.Setenv("WRITE_TIMEOUT", "not-a-number")
	t.Setenv("CAPTURES_DIR", "/srv/captures")
	t.Setenv("VIEWER_REMOTE_HOSTS", " scenes.internal, ,cdn.local ")

	cfg := Load()
	if cfg.Port != "8080" || cfg.ReadTimeout != 30 || cfg.WriteTimeout != 10 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.CapturesDir != "/srv/captures" {
		t.Fatalf("captures dir = %q", cfg.CapturesDir)
	}
	if len(cfg.RemoteHosts) != 2 || cfg.RemoteHosts[0] != "scenes.internal" || cfg.RemoteHosts[1] != "cdn.local" {
		t.Fatalf("remote hosts = %q", cfg.RemoteHosts)
	}
	if got := cfg.PortOr("3001"); got != "8080" {
		t.Fatalf("PortOr = %q", got)
	}
}

func TestFetchTimeoutFormats(t *testing.T) {
	cases := map[string]time.Duration{
		"15s":   15 * time.Second,
		"250ms": 250 * time.Millisecond,
		"3":     3 * time.Second,
		"bogus": 10 * time.Second,
	}
	for raw, want := range cases {
		t.Setenv("FETCH_TIMEOUT", raw)
		if got := Load().FetchTimeout; got != want {
			t.Fatalf("FETCH_TIMEOUT=%q: got %v, want %v", raw, got, want)
		}
	}
}
