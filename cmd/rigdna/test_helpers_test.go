package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"cogentcore.org/core/math32"

	"rigdna/internal/snapshot"
)

// newTestConfigFile writes a config pointing every path at the test's
// temp space and returns its path.
func newTestConfigFile(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	content := fmt.Sprintf(`[paths]
data_dir = %q
archive_dir = %q
log_dir = %q

[watch]
debounce_ms = 25
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "archive"),
		filepath.Join(base, "logs"),
	)
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeIdentitySnapshot captures the fixture rig's own geometry with one
// vertex nudged, which keeps Calibrate's index checks happy while still
// producing a visible edit.
func writeIdentitySnapshot(t *testing.T, path string) {
	t.Helper()

	snap := &snapshot.Snapshot{
		Name: "hero",
		LODs: []snapshot.LOD{{
			Positions: []math32.Vector3{
				math32.Vec3(-1, 0, 0.5),
				math32.Vec3(1, 0, 0),
				math32.Vec3(1, 2, 0),
				math32.Vec3(-1, 2, 0),
			},
		}},
	}
	data, err := snapshot.Encode(snap)
	if err != nil {
		t.Fatalf("encode snapshot: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
}
