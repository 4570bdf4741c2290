// Package catalog reads the two tabular inputs that drive a run: the
// scene list (video_id -> split) and the scene metadata that marks which
// scenes carry high-resolution depth.
package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"scenesync/internal/model"
)

// LoadScenes reads the scene-list CSV (columns video_id and fold) and
// returns scene keys, optionally filtered to one split. An empty split
// keeps every row.
func LoadScenes(path string, split model.Split) ([]model.SceneKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scene list %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read scene list header %s: %w", path, err)
	}
	idCol, foldCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "video_id":
			idCol = i
		case "fold":
			foldCol = i
		}
	}
	if idCol < 0 || foldCol < 0 {
		return nil, fmt.Errorf("scene list %s: missing video_id or fold column", path)
	}

	var scenes []model.SceneKey
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read scene list %s: %w", path, err)
		}
		rowSplit := model.Split(strings.TrimSpace(row[foldCol]))
		if split != "" && rowSplit != split {
			continue
		}
		scenes = append(scenes, model.SceneKey{
			VideoID: strings.TrimSpace(row[idCol]),
			Split:   rowSplit,
		})
	}
	return scenes, nil
}

// Metadata answers high-resolution-depth eligibility per scene. The
// metadata file is optional: when absent every scene is assumed eligible
// so a first run can still fetch it.
type Metadata struct {
	loaded     bool
	upsampling map[string]bool
}

// MetadataPath locates the metadata file under a download directory.
func MetadataPath(downloadDir string) string {
	return filepath.Join(downloadDir, "raw", "metadata.csv")
}

// LoadMetadata reads metadata.csv (columns video_id and is_in_upsampling).
// A missing file yields an unloaded Metadata; an unreadable or malformed
// file yields a loaded-but-empty one, so unknown scenes classify as
// ineligible rather than triggering pointless downloads.
func LoadMetadata(downloadDir string) *Metadata {
	f, err := os.Open(MetadataPath(downloadDir))
	if err != nil {
		return &Metadata{}
	}
	defer f.Close()

	m := &Metadata{loaded: true, upsampling: make(map[string]bool)}
	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return m
	}
	idCol, upCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "video_id":
			idCol = i
		case "is_in_upsampling":
			upCol = i
		}
	}
	if idCol < 0 || upCol < 0 {
		return m
	}
	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		if idCol >= len(row) || upCol >= len(row) {
			continue
		}
		id := strings.TrimSpace(row[idCol])
		m.upsampling[id] = strings.EqualFold(strings.TrimSpace(row[upCol]), "true")
	}
	return m
}

// HighResDepthAvailable reports whether a scene is eligible for the
// high-resolution depth asset.
func (m *Metadata) HighResDepthAvailable(videoID string) bool {
	if m == nil || !m.loaded {
		return true
	}
	return m.upsampling[videoID]
}
