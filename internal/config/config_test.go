package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	for _, key := range []string{"RISE_OUTPUT", "RISE_RPC_URL", "RISE_MAX_SESSIONS", "RISE_DELAY_MIN", "RISE_DELAY_MAX", "RISE_ENABLE_ACTIONS", "RISE_SIMULATE"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	settings, err := Load(GlobalFlags{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.MaxSessions != 5 {
		t.Fatalf("expected 5 sessions, got %d", settings.MaxSessions)
	}
	if settings.DelayMin != 10*time.Second || settings.DelayMax != 60*time.Second {
		t.Fatalf("unexpected delay range [%s, %s]", settings.DelayMin, settings.DelayMax)
	}
	if settings.FractionMin != 0.2 || settings.FractionMax != 0.4 {
		t.Fatalf("unexpected fraction range [%g, %g]", settings.FractionMin, settings.FractionMax)
	}
	if !strings.HasSuffix(settings.LockPath, filepath.Join("rise", "run.lock")) {
		t.Fatalf("unexpected lock path %s", settings.LockPath)
	}
}

func TestLoadPrecedenceFlagsOverEnvOverFile(t *testing.T) {
	isolate(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	body := `output: plain
max_sessions: 2
rpc_url: https://file.example
delay:
  min: 1s
  max: 3s
fraction:
  min: 0.1
  max: 0.5
wrap_amount:
  min: "0.001"
  max: "0.002"
log:
  level: debug
enable_actions: [wrap]
`
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("RISE_MAX_SESSIONS", "3")
	t.Setenv("RISE_RPC_URL", "https://env.example")
	settings, err := Load(GlobalFlags{ConfigPath: configPath, MaxSessions: 4, JSON: true})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.OutputMode != "json" {
		t.Fatalf("expected flag to win, got output=%s", settings.OutputMode)
	}
	if settings.MaxSessions != 4 {
		t.Fatalf("expected sessions from flags, got %d", settings.MaxSessions)
	}
	if settings.RPCURL != "https://env.example" {
		t.Fatalf("expected env to override file, got %s", settings.RPCURL)
	}
	if settings.DelayMin != time.Second || settings.DelayMax != 3*time.Second {
		t.Fatalf("unexpected delay range from file [%s, %s]", settings.DelayMin, settings.DelayMax)
	}
	if settings.FractionMin != 0.1 || settings.FractionMax != 0.5 {
		t.Fatalf("unexpected fraction from file [%g, %g]", settings.FractionMin, settings.FractionMax)
	}
	if settings.WrapMin != "0.001" || settings.LogLevel != "debug" {
		t.Fatalf("unexpected file values: %+v", settings)
	}
	if len(settings.EnableActions) != 1 || settings.EnableActions[0] != "wrap" {
		t.Fatalf("unexpected enable_actions: %v", settings.EnableActions)
	}
}

func TestLoadMutuallyExclusiveOutputFlags(t *testing.T) {
	isolate(t)
	if _, err := Load(GlobalFlags{JSON: true, Plain: true}); err == nil {
		t.Fatal("expected error with --json and --plain")
	}
}

func TestLoadRejectsInvalidRanges(t *testing.T) {
	isolate(t)
	if _, err := Load(GlobalFlags{DelayMin: "5s", DelayMax: "1s"}); err == nil {
		t.Fatal("expected inverted delay range to fail")
	}

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("fraction:\n  min: 0.6\n  max: 0.4\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(GlobalFlags{ConfigPath: configPath}); err == nil {
		t.Fatal("expected inverted fraction range to fail")
	}

	if err := os.WriteFile(configPath, []byte("wrap_amount:\n  min: abc\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(GlobalFlags{ConfigPath: configPath}); err == nil {
		t.Fatal("expected malformed wrap amount to fail")
	}
}

func TestEnvEnableActionsList(t *testing.T) {
	isolate(t)
	t.Setenv("RISE_ENABLE_ACTIONS", "wrap, supply ,")
	settings, err := Load(GlobalFlags{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(settings.EnableActions) != 2 || settings.EnableActions[1] != "supply" {
		t.Fatalf("unexpected list: %v", settings.EnableActions)
	}
}
