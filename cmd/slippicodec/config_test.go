package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaultsWithNoPath(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig(\"\"): %v", err)
	}
	if cfg != defaultConfig() {
		t.Errorf("loadConfig(\"\") = %+v, want %+v", cfg, defaultConfig())
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "debugLevel: 3\nskipSave: true\nrawEnc: true\ndumpGecko: false\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.DebugLevel != 3 || !cfg.SkipSave || !cfg.RawEnc || cfg.DumpGecko {
		t.Errorf("loadConfig = %+v, want DebugLevel=3 SkipSave=true RawEnc=true DumpGecko=false", cfg)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("loadConfig should error on a missing file")
	}
}
