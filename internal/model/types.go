package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Split identifies which fold of the catalog a scene belongs to.
type Split string

const (
	SplitTraining   Split = "Training"
	SplitValidation Split = "Validation"
)

// ParseSplit validates a user-supplied split name.
func ParseSplit(raw string) (Split, error) {
	switch strings.TrimSpace(raw) {
	case string(SplitTraining):
		return SplitTraining, nil
	case string(SplitValidation):
		return SplitValidation, nil
	default:
		return "", fmt.Errorf("invalid split %q (expected %s or %s)", raw, SplitTraining, SplitValidation)
	}
}

// SceneKey uniquely identifies a scene in the catalog.
type SceneKey struct {
	VideoID string
	Split   Split
}

func (k SceneKey) String() string {
	return fmt.Sprintf("%s/%s", k.Split, k.VideoID)
}

// Path returns the scene's local directory under downloadDir.
func (k SceneKey) Path(downloadDir string) string {
	return filepath.Join(downloadDir, "raw", string(k.Split), k.VideoID)
}

// Asset names as they appear both in download requests and on disk.
const (
	AssetHighResDepth = "highres_depth"
	AssetUltraWide    = "ultrawide"
	AssetIntrinsics   = "ultrawide_intrinsics"
)

// DefaultAssets returns the asset set requested when none is configured.
// Order matters: it is the download order and the validation order.
func DefaultAssets() []string {
	return []string{AssetHighResDepth, AssetUltraWide, AssetIntrinsics}
}

// AssetExt returns the file extension expected inside an asset directory.
func AssetExt(asset string) string {
	if asset == AssetIntrinsics {
		return ".pincam"
	}
	return ".png"
}

// TaskSpec describes one scene's work for one wave. It is built once per
// wave per scene, consumed by exactly one executor call, and discarded.
type TaskSpec struct {
	Key               SceneKey
	DownloadDir       string
	Assets            []string
	SubsampleN        int
	Execute           bool
	SkipDownload      bool
	ForceReprocess    bool
	Quiet             bool
	RedownloadAttempt int
}

// Result is the immutable outcome of one executor invocation.
type Result struct {
	Key     SceneKey
	Success bool
	Phase   Phase
	Err     string
	Reason  string
}
