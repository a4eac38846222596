package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cogentcore.org/core/math32"

	"rigdna/internal/archive"
	"rigdna/internal/dna"
	"rigdna/internal/snapshot"
	"rigdna/internal/testsupport"
)

func TestCalibrateCommand(t *testing.T) {
	cfgPath := newTestConfigFile(t)
	work := t.TempDir()
	rigPath := filepath.Join(work, "hero.dna")
	testsupport.WriteDocument(t, rigPath, "hero")

	snapPath := filepath.Join(work, "edit.json")
	writeIdentitySnapshot(t, snapPath)

	outPath := filepath.Join(work, "hero_calibrated.dna")
	out, _, err := runCLI(t, cfgPath, "calibrate", rigPath, "--snapshot", snapPath, "--output", outPath)
	if err != nil {
		t.Fatalf("calibrate: %v", err)
	}
	if !strings.Contains(out, "Wrote "+outPath) {
		t.Fatalf("missing output line:\n%s", out)
	}
	if !strings.Contains(out, "Archived prior revision") {
		t.Fatalf("missing archive line:\n%s", out)
	}

	derived, err := dna.Load(outPath)
	if err != nil {
		t.Fatalf("load derived: %v", err)
	}
	mesh, err := derived.Mesh(0)
	if err != nil {
		t.Fatalf("mesh: %v", err)
	}
	if got := mesh.Positions[0].Z; got != 0.5 {
		t.Fatalf("vertex 0 z = %v, want 0.5", got)
	}

	listOut, _, err := runCLI(t, cfgPath, "archive", "list", "--json")
	if err != nil {
		t.Fatalf("archive list: %v", err)
	}
	var entries []archive.Entry
	if err := json.Unmarshal([]byte(listOut), &entries); err != nil {
		t.Fatalf("decode archive list: %v\n%s", err, listOut)
	}
	if len(entries) != 1 || entries[0].RigName != "hero" || entries[0].Trigger != archive.TriggerCalibrate {
		t.Fatalf("unexpected archive entries: %+v", entries)
	}
}

func TestCalibrateCommandSuggestsOverwriteOnMismatch(t *testing.T) {
	cfgPath := newTestConfigFile(t)
	work := t.TempDir()
	rigPath := filepath.Join(work, "hero.dna")
	testsupport.WriteDocument(t, rigPath, "hero")

	snap := &snapshot.Snapshot{
		Name: "hero",
		LODs: []snapshot.LOD{{
			Positions: []math32.Vector3{
				math32.Vec3(0, 0, 0),
				math32.Vec3(1, 0, 0),
				math32.Vec3(0, 1, 0),
			},
		}},
	}
	data, err := snapshot.Encode(snap)
	if err != nil {
		t.Fatalf("encode snapshot: %v", err)
	}
	snapPath := filepath.Join(work, "retopo.json")
	if err := os.WriteFile(snapPath, data, 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	_, _, err = runCLI(t, cfgPath, "calibrate", rigPath, "--snapshot", snapPath)
	if err == nil {
		t.Fatal("expected index mismatch error")
	}
	if !strings.Contains(err.Error(), "rigdna overwrite") {
		t.Fatalf("error should suggest overwrite: %v", err)
	}
}

func TestOverwriteCommand(t *testing.T) {
	cfgPath := newTestConfigFile(t)
	work := t.TempDir()
	rigPath := filepath.Join(work, "hero.dna")
	testsupport.WriteDocument(t, rigPath, "hero")

	// Retopologized capture: same chart, different triangulation and an
	// extra vertex at the chart center.
	snap := &snapshot.Snapshot{
		Name: "hero",
		LODs: []snapshot.LOD{{
			Positions: []math32.Vector3{
				math32.Vec3(-1, 0, 0),
				math32.Vec3(1, 0, 0),
				math32.Vec3(1, 2, 0),
				math32.Vec3(-1, 2, 0),
				math32.Vec3(0, 1, 0),
			},
			UVs: []math32.Vector2{
				math32.Vec2(0, 0),
				math32.Vec2(1, 0),
				math32.Vec2(1, 1),
				math32.Vec2(0, 1),
				math32.Vec2(0.5, 0.5),
			},
			Triangles: [][3]uint32{{0, 1, 4}, {1, 2, 4}, {2, 3, 4}, {3, 0, 4}},
		}},
	}
	data, err := snapshot.Encode(snap)
	if err != nil {
		t.Fatalf("encode snapshot: %v", err)
	}
	snapPath := filepath.Join(work, "retopo.json")
	if err := os.WriteFile(snapPath, data, 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	outPath := filepath.Join(work, "hero_overwrite.dna")
	out, stderr, err := runCLI(t, cfgPath, "overwrite", rigPath, "--snapshot", snapPath, "--output", outPath)
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if !strings.Contains(stderr, "experimental") {
		t.Fatalf("missing experimental warning:\n%s", stderr)
	}
	if !strings.Contains(out, "Relocated") {
		t.Fatalf("missing relocation summary:\n%s", out)
	}

	derived, err := dna.Load(outPath)
	if err != nil {
		t.Fatalf("load derived: %v", err)
	}
	mesh, err := derived.Mesh(0)
	if err != nil {
		t.Fatalf("mesh: %v", err)
	}
	if len(mesh.Positions) != 5 {
		t.Fatalf("derived vertex count = %d, want 5", len(mesh.Positions))
	}
	for vi, weights := range mesh.Weights {
		var sum float32
		for _, w := range weights {
			sum += w.Weight
		}
		if sum < 1-1e-5 || sum > 1+1e-5 {
			t.Fatalf("vertex %d weights sum to %v", vi, sum)
		}
	}
}
