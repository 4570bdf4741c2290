package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"scenesync/internal/model"
)

func TestRemoveIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scene")
	if err := Remove(dir); err != nil {
		t.Fatalf("removing an absent directory should succeed: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := Remove(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("scene directory should be gone")
	}
}

func TestCleanAndMatchIntersectsStems(t *testing.T) {
	scenePath := t.TempDir()
	keep := testAssets()
	populateAsset(t, scenePath, model.AssetHighResDepth, 20)
	populateAsset(t, scenePath, model.AssetUltraWide, 20)
	populateAsset(t, scenePath, model.AssetIntrinsics, 15) // 5 frames lack calibration

	// An unwanted directory next to the kept ones.
	if err := os.MkdirAll(filepath.Join(scenePath, "lowres_wide"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := CleanAndMatch(scenePath, keep, true); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(scenePath, "lowres_wide")); !os.IsNotExist(err) {
		t.Fatal("unwanted directory should be removed")
	}
	for _, asset := range keep {
		files := sortedFiles(filepath.Join(scenePath, asset), model.AssetExt(asset))
		if len(files) != 15 {
			t.Fatalf("%s: expected 15 matched files, got %d", asset, len(files))
		}
	}
}

func TestCleanAndMatchDryRunDeletesNothing(t *testing.T) {
	scenePath := t.TempDir()
	keep := testAssets()
	populateAsset(t, scenePath, model.AssetHighResDepth, 20)
	populateAsset(t, scenePath, model.AssetUltraWide, 20)
	populateAsset(t, scenePath, model.AssetIntrinsics, 15)

	if err := CleanAndMatch(scenePath, keep, false); err != nil {
		t.Fatal(err)
	}
	files := sortedFiles(filepath.Join(scenePath, model.AssetHighResDepth), ".png")
	if len(files) != 20 {
		t.Fatalf("dry run must not delete, got %d files", len(files))
	}
}

func TestCleanAndMatchFailsOnMissingRequiredDir(t *testing.T) {
	scenePath := t.TempDir()
	populateAsset(t, scenePath, model.AssetHighResDepth, 20)
	populateAsset(t, scenePath, model.AssetUltraWide, 20)

	if err := CleanAndMatch(scenePath, testAssets(), true); err == nil {
		t.Fatal("expected error when a required directory is absent")
	}
}

func TestSubsampleKeepsEveryNth(t *testing.T) {
	scenePath := t.TempDir()
	for _, asset := range testAssets() {
		populateAsset(t, scenePath, asset, 50)
	}

	if err := Subsample(scenePath, testAssets(), 5, true); err != nil {
		t.Fatal(err)
	}

	// ceil(50/5) = 10 files: indices 0, 5, 10, ...
	var kept map[string]bool
	for _, asset := range testAssets() {
		files := sortedFiles(filepath.Join(scenePath, asset), model.AssetExt(asset))
		if len(files) != 10 {
			t.Fatalf("%s: expected 10 files after subsampling, got %d", asset, len(files))
		}
		stems := make(map[string]bool, len(files))
		for _, name := range files {
			stems[name[:len(name)-len(filepath.Ext(name))]] = true
		}
		for i := 0; i < 50; i += 5 {
			if !stems[fmt.Sprintf("frame_%04d", i)] {
				t.Fatalf("%s: expected frame_%04d to be kept", asset, i)
			}
		}
		if kept == nil {
			kept = stems
			continue
		}
		// Intrinsics must retain the identical index set as the images.
		for s := range kept {
			if !stems[s] {
				t.Fatalf("%s: stem %s missing from kept set", asset, s)
			}
		}
	}
}

func TestSubsampleFactorOneIsNoop(t *testing.T) {
	scenePath := t.TempDir()
	populateAsset(t, scenePath, model.AssetHighResDepth, 12)
	if err := Subsample(scenePath, testAssets(), 1, true); err != nil {
		t.Fatal(err)
	}
	files := sortedFiles(filepath.Join(scenePath, model.AssetHighResDepth), ".png")
	if len(files) != 12 {
		t.Fatalf("factor 1 must keep everything, got %d", len(files))
	}
}

func TestEmptyAssetDirs(t *testing.T) {
	scenePath := t.TempDir()
	populateAsset(t, scenePath, model.AssetHighResDepth, 5)
	if err := os.MkdirAll(filepath.Join(scenePath, model.AssetUltraWide), 0o755); err != nil {
		t.Fatal(err)
	}

	empty := EmptyAssetDirs(scenePath, testAssets())
	if len(empty) != 1 || empty[0] != model.AssetUltraWide {
		t.Fatalf("expected only %s to be empty, got %v", model.AssetUltraWide, empty)
	}
}
