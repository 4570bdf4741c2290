package model

// Phase is the terminal tag of a task result. The set is closed: the
// tracker buckets every phase into exactly one summary category.
type Phase string

const (
	PhaseCompleted         Phase = "completed"
	PhaseSkipped           Phase = "skipped"
	PhaseSkippedNoHighRes  Phase = "skipped_no_highres"
	PhaseRemovedNoHighRes  Phase = "removed_no_highres"
	PhaseRemovalFailed     Phase = "removal_failed"
	PhaseDownload          Phase = "download"
	PhaseRedownloadFailed  Phase = "redownload_failed"
	PhaseRemoved           Phase = "removed"
	PhaseMissingIntrinsics Phase = "missing_intrinsics"
	// PhaseRemovedMissingIntrinsics flags a scene whose redownload still
	// lacks intrinsics. The directory is left on disk; the repair wave
	// picks these up.
	PhaseRemovedMissingIntrinsics Phase = "removed_missing_intrinsics"
	PhaseProcessing               Phase = "processing"
	PhaseException                Phase = "exception"
)

// Bucket is the summary category a result lands in.
type Bucket int

const (
	BucketSucceeded Bucket = iota
	BucketSkipped
	BucketFailedDownload
	BucketFailedProcessing
)

// skipPhases are successful results that did not produce new local data.
var skipPhases = map[Phase]bool{
	PhaseSkipped:          true,
	PhaseSkippedNoHighRes: true,
	PhaseRemovedNoHighRes: true,
}

// taggedFailures are failures reported with their phase attached, since
// the phase carries remediation meaning for later waves.
var taggedFailures = map[Phase]bool{
	PhaseRemoved:                  true,
	PhaseRemovedMissingIntrinsics: true,
	PhaseRedownloadFailed:         true,
	PhaseRemovalFailed:            true,
}

// BucketFor maps a result onto its summary category.
func BucketFor(r Result) Bucket {
	if r.Success {
		if skipPhases[r.Phase] {
			return BucketSkipped
		}
		return BucketSucceeded
	}
	if r.Phase == PhaseDownload {
		return BucketFailedDownload
	}
	return BucketFailedProcessing
}

// Tagged reports whether a processing failure should carry its phase tag
// in the failure list.
func (p Phase) Tagged() bool {
	return taggedFailures[p]
}

// Action is the classifier's verdict for a scene.
type Action int

const (
	ActionSkip Action = iota
	ActionSkipNoHighRes
	ActionRedownload
	ActionRemove
	ActionProcess
)

func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionSkipNoHighRes:
		return "skip_no_highres"
	case ActionRedownload:
		return "redownload"
	case ActionRemove:
		return "remove"
	case ActionProcess:
		return "process"
	default:
		return "unknown"
	}
}
