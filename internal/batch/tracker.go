package batch

import (
	"fmt"
	"sync"
	"time"

	"scenesync/internal/model"
)

// rateWindow is the trailing span used for throughput calculation.
const rateWindow = 60 * time.Second

// FailureRecord is a failed scene plus the phase it failed in.
type FailureRecord struct {
	Key   model.SceneKey
	Phase model.Phase
}

func (f FailureRecord) String() string {
	if f.Phase.Tagged() {
		return fmt.Sprintf("%s (%s)", f.Key.VideoID, f.Phase)
	}
	return f.Key.VideoID
}

// Snapshot is a point-in-time view published on the progress cadence.
type Snapshot struct {
	Label            string
	Total            int
	Completed        int
	Succeeded        int
	Skipped          int
	FailedDownloads  int
	FailedProcessing int
	RatePerMin       float64
	ETA              time.Duration
	Elapsed          time.Duration
}

// Percent returns completion in [0,1].
func (s Snapshot) Percent() float64 {
	if s.Total == 0 {
		return 1
	}
	return float64(s.Completed) / float64(s.Total)
}

// Summary is the immutable result of a finalized wave.
type Summary struct {
	Label             string
	Total             int
	Completed         int
	Succeeded         int
	Skipped           int
	FailedDownloads   []model.SceneKey
	FailedProcessing  []FailureRecord
	MissingIntrinsics []model.SceneKey
	Successful        []model.SceneKey
	Elapsed           time.Duration
}

// Failed reports the total failure count.
func (s Summary) Failed() int {
	return len(s.FailedDownloads) + len(s.FailedProcessing)
}

// StatusSink receives snapshots on the progress cadence. Implemented by
// the interactive dashboard and the periodic log line.
type StatusSink interface {
	Publish(Snapshot)
}

// Tracker aggregates results for one wave. Record is safe for concurrent
// use; all mutable state sits behind one lock held only for the counter
// update, never across an external call.
type Tracker struct {
	label string
	total int
	start time.Time

	mu                sync.Mutex
	completed         int
	succeeded         int
	skipped           int
	failedDownloads   []model.SceneKey
	failedProcessing  []FailureRecord
	missingIntrinsics []model.SceneKey
	successful        []model.SceneKey
	recent            []time.Time
	finalized         bool
	summary           Summary

	// Set by StartCadence; nil when no cadence is running.
	stopCadence chan struct{}
	cadenceDone chan struct{}
}

func NewTracker(label string, total int) *Tracker {
	return &Tracker{
		label: label,
		total: total,
		start: time.Now(),
	}
}

// Record merges one result. Results arriving after Finalize are dropped.
func (t *Tracker) Record(res model.Result) {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finalized {
		return
	}

	t.completed++
	t.recent = append(t.recent, now)
	cutoff := now.Add(-rateWindow)
	for len(t.recent) > 0 && t.recent[0].Before(cutoff) {
		t.recent = t.recent[1:]
	}

	switch model.BucketFor(res) {
	case model.BucketSkipped:
		t.skipped++
	case model.BucketSucceeded:
		t.succeeded++
		t.successful = append(t.successful, res.Key)
	case model.BucketFailedDownload:
		t.failedDownloads = append(t.failedDownloads, res.Key)
	case model.BucketFailedProcessing:
		t.failedProcessing = append(t.failedProcessing, FailureRecord{Key: res.Key, Phase: res.Phase})
	}

	if res.Phase == model.PhaseRemovedMissingIntrinsics || res.Phase == model.PhaseMissingIntrinsics {
		t.missingIntrinsics = append(t.missingIntrinsics, res.Key)
	}
}

// Snapshot returns the current aggregate view with rate and ETA derived
// from the trailing completion window.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	elapsed := time.Since(t.start)
	rate := t.rateLocked(elapsed)

	var eta time.Duration
	if rate > 0 {
		remaining := t.total - t.completed
		eta = time.Duration(float64(remaining) / rate * float64(time.Minute))
	}

	return Snapshot{
		Label:            t.label,
		Total:            t.total,
		Completed:        t.completed,
		Succeeded:        t.succeeded,
		Skipped:          t.skipped,
		FailedDownloads:  len(t.failedDownloads),
		FailedProcessing: len(t.failedProcessing),
		RatePerMin:       rate,
		ETA:              eta,
		Elapsed:          elapsed,
	}
}

// rateLocked returns completions per minute. With enough recent samples
// the trailing window wins; otherwise the whole-run average.
func (t *Tracker) rateLocked(elapsed time.Duration) float64 {
	if len(t.recent) >= 2 {
		span := t.recent[len(t.recent)-1].Sub(t.recent[0])
		if span > 0 {
			return float64(len(t.recent)-1) / span.Minutes()
		}
	}
	if elapsed > 0 {
		return float64(t.completed) / elapsed.Minutes()
	}
	return 0
}

// StartCadence publishes snapshots to sink at the given interval until
// Finalize. The goroutine reads stats under the lock and never holds it
// across the publish.
func (t *Tracker) StartCadence(sink StatusSink, interval time.Duration) {
	if sink == nil || interval <= 0 {
		return
	}
	t.stopCadence = make(chan struct{})
	t.cadenceDone = make(chan struct{})
	go func() {
		defer close(t.cadenceDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.stopCadence:
				return
			case <-ticker.C:
				sink.Publish(t.Snapshot())
			}
		}
	}()
}

// Finalize stops the cadence and freezes the summary. The first call
// builds it; later calls return the same value and the tracker accepts no
// further records.
func (t *Tracker) Finalize() Summary {
	t.mu.Lock()
	if t.finalized {
		s := t.summary
		t.mu.Unlock()
		return s
	}
	t.finalized = true
	t.summary = Summary{
		Label:             t.label,
		Total:             t.total,
		Completed:         t.completed,
		Succeeded:         t.succeeded,
		Skipped:           t.skipped,
		FailedDownloads:   append([]model.SceneKey(nil), t.failedDownloads...),
		FailedProcessing:  append([]FailureRecord(nil), t.failedProcessing...),
		MissingIntrinsics: append([]model.SceneKey(nil), t.missingIntrinsics...),
		Successful:        append([]model.SceneKey(nil), t.successful...),
		Elapsed:           time.Since(t.start),
	}
	s := t.summary
	t.mu.Unlock()

	if t.stopCadence != nil {
		close(t.stopCadence)
		<-t.cadenceDone
	}
	return s
}
