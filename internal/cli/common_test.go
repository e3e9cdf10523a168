package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaultsWhenPathEmpty(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.WorkDir != "." {
		t.Errorf("WorkDir = %q, want %q", cfg.WorkDir, ".")
	}
}

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Verbose {
		t.Error("Verbose = true, want false (default)")
	}
}

func TestLoadConfigReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"verbose":true,"debug":true,"work_dir":"/tmp/x"}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if !cfg.Verbose || !cfg.Debug {
		t.Errorf("cfg = %+v, want Verbose and Debug true", cfg)
	}

	if cfg.WorkDir != "/tmp/x" {
		t.Errorf("WorkDir = %q, want /tmp/x", cfg.WorkDir)
	}
}

func TestLoadConfigRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected LoadConfig to reject malformed JSON")
	}
}

func TestNewLoggerRespectsVerboseAndDebugFlags(t *testing.T) {
	l := NewLogger(true, false)
	if !l.Verbose || l.DebugMode {
		t.Errorf("logger = %+v, want Verbose=true DebugMode=false", l)
	}

	l = NewLogger(false, true)
	if l.Verbose || !l.DebugMode {
		t.Errorf("logger = %+v, want Verbose=false DebugMode=true", l)
	}
}

func TestGetVersionInfoReportsConfiguredVersion(t *testing.T) {
	info := GetVersionInfo()
	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}

	if info.GoVersion == "" {
		t.Error("GoVersion is empty")
	}
}
