// Package scene implements the on-disk side of reconciliation: deriving a
// scene's path state fresh from disk, classifying it into an action, and
// the cleanup primitives that act on the verdict.
package scene

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"scenesync/internal/model"
)

const (
	// An asset directory with fewer files than this counts as missing:
	// a handful of frames means the fetch was cut off.
	minFilesPerAsset = 10

	// A kept directory holding more files than this has clearly never
	// been subsampled.
	subsampleAppliedMax = 1000
)

// Status summarizes a PathState.
type Status int

const (
	StatusComplete Status = iota
	StatusMissingIntrinsics
	StatusMissingOther
	StatusCorrupted
)

// PathState is a scene's disk state, computed fresh on every call and
// never cached: disk contents may change between runs.
type PathState struct {
	Exists     bool
	Missing    []string // required assets absent or too sparse
	Corrupted  []string // zip files failing their integrity self-test
	DirExists  map[string]bool
	FileCounts map[string]int
}

// Inspect derives the path state for a scene directory against the
// requested asset set. It performs no mutation and is safe to call
// concurrently across different scenes.
func Inspect(scenePath string, assets []string) PathState {
	st := PathState{
		DirExists:  make(map[string]bool),
		FileCounts: make(map[string]int),
	}
	if info, err := os.Stat(scenePath); err != nil || !info.IsDir() {
		return st
	}
	st.Exists = true

	for _, asset := range assets {
		dir := filepath.Join(scenePath, asset)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			st.Missing = append(st.Missing, asset)
			continue
		}
		st.DirExists[asset] = true
		n := countFiles(dir, model.AssetExt(asset))
		st.FileCounts[asset] = n
		if n < minFilesPerAsset {
			st.Missing = append(st.Missing, asset)
		}
	}

	entries, err := os.ReadDir(scenePath)
	if err != nil {
		return st
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".zip") {
			continue
		}
		if !zipIntact(filepath.Join(scenePath, e.Name())) {
			st.Corrupted = append(st.Corrupted, e.Name())
		}
	}
	return st
}

// Status collapses the state into the original validation taxonomy.
// Corruption dominates; a scene missing only its intrinsics while depth
// and wide imagery are present is a distinct, repairable condition.
func (s PathState) Status() Status {
	if len(s.Corrupted) > 0 {
		return StatusCorrupted
	}
	if len(s.Missing) == 0 {
		return StatusComplete
	}
	if len(s.Missing) == 1 && s.Missing[0] == model.AssetIntrinsics &&
		s.DirExists[model.AssetHighResDepth] && s.DirExists[model.AssetUltraWide] {
		return StatusMissingIntrinsics
	}
	return StatusMissingOther
}

// MissingContains reports whether a given asset is in the missing set.
func (s PathState) MissingContains(asset string) bool {
	for _, m := range s.Missing {
		if m == asset {
			return true
		}
	}
	return false
}

func countFiles(dir, ext string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ext) {
			n++
		}
	}
	return n
}

// zipIntact opens an archive and reads every member to the end, which
// verifies each member's CRC.
func zipIntact(path string) bool {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return false
	}
	defer zr.Close()
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return false
		}
		_, err = io.Copy(io.Discard, rc)
		rc.Close()
		if err != nil {
			return false
		}
	}
	return true
}

// EmptyAssetDirs returns the requested asset directories that exist but
// hold zero entries. Used by the final repair wave.
func EmptyAssetDirs(scenePath string, assets []string) []string {
	var empty []string
	for _, asset := range assets {
		dir := filepath.Join(scenePath, asset)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		if len(entries) == 0 {
			empty = append(empty, asset)
		}
	}
	return empty
}

// sortedFiles lists regular files in dir with the given extension,
// ordered by name.
func sortedFiles(dir, ext string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ext) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}
