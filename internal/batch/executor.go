package batch

import (
	"context"
	"fmt"

	"scenesync/internal/model"
	"scenesync/internal/scene"
)

// Fetcher is the external download collaborator boundary.
type Fetcher interface {
	FetchScene(ctx context.Context, key model.SceneKey, downloadDir string, assets []string) error
}

// Executor runs one scene's full lifecycle: classify, optionally fetch,
// then clean and subsample. Every path ends in a terminal phase; a panic
// anywhere is contained and reported as an exception so a single scene's
// fault can never abort the pool.
type Executor struct {
	Eligibility scene.Eligibility
	Fetcher     Fetcher
}

// Execute consumes one TaskSpec and produces its Result.
func (e *Executor) Execute(ctx context.Context, spec model.TaskSpec) (res model.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = model.Result{
				Key:     spec.Key,
				Success: false,
				Phase:   model.PhaseException,
				Err:     fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	return e.run(ctx, spec)
}

func (e *Executor) run(ctx context.Context, spec model.TaskSpec) model.Result {
	scenePath := spec.Key.Path(spec.DownloadDir)
	redownload := spec.RedownloadAttempt > 0

	// Remediation waves bypass classification: their scene subsets were
	// derived from prior results and must be re-fetched unconditionally.
	if !spec.ForceReprocess && spec.RedownloadAttempt == 0 {
		action, reason := scene.Classify(spec.Key, spec.DownloadDir, spec.Assets, spec.SubsampleN, e.Eligibility)
		switch action {
		case model.ActionSkip:
			return model.Result{Key: spec.Key, Success: true, Phase: model.PhaseSkipped, Reason: reason}
		case model.ActionSkipNoHighRes:
			return model.Result{Key: spec.Key, Success: true, Phase: model.PhaseSkippedNoHighRes, Reason: reason}
		case model.ActionRemove:
			if spec.Execute {
				if err := scene.Remove(scenePath); err != nil {
					return model.Result{Key: spec.Key, Success: false, Phase: model.PhaseRemovalFailed, Err: err.Error()}
				}
			}
			// Removal of an ineligible scene is expected housekeeping;
			// removal of an eligible scene means its depth data is gone and
			// counts as a processing failure.
			if e.Eligibility != nil && !e.Eligibility.HighResDepthAvailable(spec.Key.VideoID) {
				return model.Result{Key: spec.Key, Success: true, Phase: model.PhaseRemovedNoHighRes, Reason: reason}
			}
			return model.Result{Key: spec.Key, Success: false, Phase: model.PhaseRemoved, Err: reason}
		case model.ActionRedownload:
			// The classifier found partial data worth re-fetching; the
			// fetch below is that redownload, so the post-fetch intrinsics
			// check applies to it too.
			redownload = true
		case model.ActionProcess:
			// fall through to the download step
		}
	}

	if !spec.SkipDownload || spec.RedownloadAttempt > 0 {
		if err := e.Fetcher.FetchScene(ctx, spec.Key, spec.DownloadDir, spec.Assets); err != nil {
			if spec.RedownloadAttempt > 0 {
				return model.Result{Key: spec.Key, Success: false, Phase: model.PhaseRedownloadFailed, Err: err.Error()}
			}
			return model.Result{Key: spec.Key, Success: false, Phase: model.PhaseDownload, Err: err.Error()}
		}

		// A redownload that still lacks intrinsics is flagged for the
		// dedicated repair wave; the directory is deliberately left on
		// disk.
		if redownload {
			st := scene.Inspect(scenePath, spec.Assets)
			if st.Status() == scene.StatusMissingIntrinsics {
				return model.Result{
					Key:     spec.Key,
					Success: false,
					Phase:   model.PhaseRemovedMissingIntrinsics,
					Err:     "scene still missing intrinsics after redownload",
				}
			}
		}
	}

	if err := scene.CleanAndMatch(scenePath, spec.Assets, spec.Execute); err != nil {
		return model.Result{Key: spec.Key, Success: false, Phase: model.PhaseProcessing, Err: err.Error()}
	}
	if spec.SubsampleN > 1 {
		if err := scene.Subsample(scenePath, spec.Assets, spec.SubsampleN, spec.Execute); err != nil {
			return model.Result{Key: spec.Key, Success: false, Phase: model.PhaseProcessing, Err: err.Error()}
		}
	}

	return model.Result{Key: spec.Key, Success: true, Phase: model.PhaseCompleted}
}
