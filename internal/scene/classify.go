package scene

import (
	"fmt"
	"strings"

	"scenesync/internal/model"
)

// Eligibility answers whether a scene carries high-resolution depth.
// Satisfied by catalog.Metadata.
type Eligibility interface {
	HighResDepthAvailable(videoID string) bool
}

// Classify decides what to do with one scene. It is a pure function of
// current disk state plus the catalog: no mutation, deterministic, and
// safe to call repeatedly and concurrently across different scenes.
//
// Decision order, first match wins:
//  1. high-res depth requested but scene ineligible: purge a stale local
//     copy, otherwise skip
//  2. nothing local: process
//  3. corrupt zip: process (re-fetch)
//  4. only intrinsics missing, depth+wide present: redownload
//  5. anything else missing: remove when depth itself is gone, else process
//  6. complete: process when subsampling is still pending, else skip
func Classify(key model.SceneKey, downloadDir string, assets []string, subsampleN int, elig Eligibility) (model.Action, string) {
	scenePath := key.Path(downloadDir)
	st := Inspect(scenePath, assets)

	if containsAsset(assets, model.AssetHighResDepth) && elig != nil && !elig.HighResDepthAvailable(key.VideoID) {
		if st.Exists {
			return model.ActionRemove, "scene has no highres_depth available - will be removed"
		}
		return model.ActionSkipNoHighRes, "scene has no highres_depth available"
	}

	if !st.Exists {
		return model.ActionProcess, "scene directory does not exist"
	}

	switch st.Status() {
	case StatusCorrupted:
		return model.ActionProcess, fmt.Sprintf("corrupted files: %s", strings.Join(st.Corrupted, ", "))
	case StatusMissingIntrinsics:
		return model.ActionRedownload, "has depth/wide but missing intrinsics - will redownload"
	case StatusMissingOther:
		if containsAsset(assets, model.AssetHighResDepth) && st.MissingContains(model.AssetHighResDepth) {
			return model.ActionRemove, "scene missing required highres_depth - will be removed"
		}
		return model.ActionProcess, fmt.Sprintf("missing: %s", strings.Join(st.Missing, ", "))
	}

	if subsampleN > 1 {
		for _, asset := range assets {
			if st.FileCounts[asset] > subsampleAppliedMax {
				return model.ActionProcess, fmt.Sprintf("subsampling not applied to %s", asset)
			}
		}
	}

	return model.ActionSkip, "scene is complete"
}

func containsAsset(assets []string, name string) bool {
	for _, a := range assets {
		if a == name {
			return true
		}
	}
	return false
}
