package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scenesync/internal/model"
)

// Remove deletes a scene directory recursively. Idempotent: an absent
// directory is success.
func Remove(scenePath string) error {
	if _, err := os.Stat(scenePath); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(scenePath); err != nil {
		return fmt.Errorf("remove scene directory %s: %w", scenePath, err)
	}
	return nil
}

// CleanAndMatch prunes a scene directory down to the kept asset
// directories and keeps only files whose stem appears in every kept
// directory, so frame n always has a depth map, a wide image, and a
// calibration entry. Fails when a kept directory is entirely absent.
// With execute false nothing is deleted; the walk still validates.
func CleanAndMatch(scenePath string, keep []string, execute bool) error {
	keepSet := make(map[string]bool, len(keep))
	for _, k := range keep {
		keepSet[k] = true
	}

	entries, err := os.ReadDir(scenePath)
	if err != nil {
		return fmt.Errorf("read scene directory %s: %w", scenePath, err)
	}
	for _, e := range entries {
		if e.IsDir() && !keepSet[e.Name()] {
			if execute {
				if err := os.RemoveAll(filepath.Join(scenePath, e.Name())); err != nil {
					return fmt.Errorf("remove directory %s: %w", e.Name(), err)
				}
			}
		}
	}

	var missing []string
	for _, k := range keep {
		if info, err := os.Stat(filepath.Join(scenePath, k)); err != nil || !info.IsDir() {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required directories: %s", strings.Join(missing, ", "))
	}

	// Intersect file stems across all kept directories.
	var common map[string]bool
	for _, k := range keep {
		stems := make(map[string]bool)
		for _, name := range sortedFiles(filepath.Join(scenePath, k), model.AssetExt(k)) {
			stems[strings.TrimSuffix(name, filepath.Ext(name))] = true
		}
		if common == nil {
			common = stems
			continue
		}
		for s := range common {
			if !stems[s] {
				delete(common, s)
			}
		}
	}

	for _, k := range keep {
		dir := filepath.Join(scenePath, k)
		dirEntries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("read directory %s: %w", dir, err)
		}
		for _, e := range dirEntries {
			if e.IsDir() {
				continue
			}
			stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
			if common[stem] {
				continue
			}
			if execute {
				if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
					return fmt.Errorf("remove unmatched file %s: %w", e.Name(), err)
				}
			}
		}
	}
	return nil
}

// Subsample keeps every nth file (sorted by name, starting at index 0) in
// each kept asset directory. The intrinsics directory is reduced with the
// identical index set so calibration stays aligned with kept images.
// With execute false nothing is deleted.
func Subsample(scenePath string, assets []string, n int, execute bool) error {
	if n <= 1 {
		return nil
	}
	for _, asset := range assets {
		dir := filepath.Join(scenePath, asset)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		files := sortedFiles(dir, model.AssetExt(asset))
		for i, name := range files {
			if i%n == 0 {
				continue
			}
			if execute {
				if err := os.Remove(filepath.Join(dir, name)); err != nil {
					return fmt.Errorf("subsample %s: remove %s: %w", asset, name, err)
				}
			}
		}
	}
	return nil
}
