package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, _, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected init output:\n%s", out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[mapper]") {
		t.Fatalf("sample config missing mapper section:\n%s", data)
	}

	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
	if _, _, err := runCLI(t, "", "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowCommand(t *testing.T) {
	cfgPath := newTestConfigFile(t)

	out, _, err := runCLI(t, cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"[paths]", "[archive]", "uv_tolerance"} {
		if !strings.Contains(out, want) {
			t.Fatalf("config show missing %q:\n%s", want, out)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runCLI(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "rigdna") {
		t.Fatalf("unexpected version output: %q", out)
	}
}
