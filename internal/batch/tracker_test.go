package batch

import (
	"sync"
	"testing"
	"time"

	"scenesync/internal/model"
)

func key(id string) model.SceneKey {
	return model.SceneKey{VideoID: id, Split: model.SplitTraining}
}

func TestTrackerBucketsResults(t *testing.T) {
	tr := NewTracker("main", 6)

	tr.Record(model.Result{Key: key("1"), Success: true, Phase: model.PhaseCompleted})
	tr.Record(model.Result{Key: key("2"), Success: true, Phase: model.PhaseSkipped})
	tr.Record(model.Result{Key: key("3"), Success: true, Phase: model.PhaseRemovedNoHighRes})
	tr.Record(model.Result{Key: key("4"), Success: false, Phase: model.PhaseDownload, Err: "boom"})
	tr.Record(model.Result{Key: key("5"), Success: false, Phase: model.PhaseProcessing, Err: "boom"})
	tr.Record(model.Result{Key: key("6"), Success: false, Phase: model.PhaseRemovedMissingIntrinsics})

	s := tr.Finalize()
	if s.Completed != 6 {
		t.Fatalf("completed = %d, want 6", s.Completed)
	}
	if s.Succeeded != 1 {
		t.Errorf("succeeded = %d, want 1", s.Succeeded)
	}
	if s.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", s.Skipped)
	}
	if len(s.FailedDownloads) != 1 || s.FailedDownloads[0].VideoID != "4" {
		t.Errorf("failed downloads = %v", s.FailedDownloads)
	}
	if len(s.FailedProcessing) != 2 {
		t.Errorf("failed processing = %v", s.FailedProcessing)
	}
	if len(s.MissingIntrinsics) != 1 || s.MissingIntrinsics[0].VideoID != "6" {
		t.Errorf("missing intrinsics = %v", s.MissingIntrinsics)
	}
	if len(s.Successful) != 1 || s.Successful[0].VideoID != "1" {
		t.Errorf("successful = %v", s.Successful)
	}
}

func TestTrackerFinalizeIsIdempotentAndFreezes(t *testing.T) {
	tr := NewTracker("main", 2)
	tr.Record(model.Result{Key: key("1"), Success: true, Phase: model.PhaseCompleted})

	first := tr.Finalize()
	tr.Record(model.Result{Key: key("2"), Success: true, Phase: model.PhaseCompleted})
	second := tr.Finalize()

	if first.Completed != 1 || second.Completed != 1 {
		t.Fatalf("finalize must freeze counts: first=%d second=%d", first.Completed, second.Completed)
	}
}

func TestTrackerConcurrentRecord(t *testing.T) {
	const n = 200
	tr := NewTracker("main", n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Record(model.Result{Key: key("x"), Success: true, Phase: model.PhaseCompleted})
		}()
	}
	wg.Wait()

	s := tr.Finalize()
	if s.Completed != n || s.Succeeded != n {
		t.Fatalf("completed=%d succeeded=%d, want %d", s.Completed, s.Succeeded, n)
	}
}

type captureSink struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (c *captureSink) Publish(s Snapshot) {
	c.mu.Lock()
	c.snaps = append(c.snaps, s)
	c.mu.Unlock()
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snaps)
}

func TestTrackerCadencePublishesAndStops(t *testing.T) {
	tr := NewTracker("main", 10)
	sink := &captureSink{}
	tr.StartCadence(sink, 10*time.Millisecond)

	tr.Record(model.Result{Key: key("1"), Success: true, Phase: model.PhaseCompleted})

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sink.count() == 0 {
		t.Fatal("cadence never published")
	}

	tr.Finalize()
	after := sink.count()
	time.Sleep(50 * time.Millisecond)
	if sink.count() != after {
		t.Fatal("cadence kept publishing after finalize")
	}
}

func TestSnapshotPercent(t *testing.T) {
	if p := (Snapshot{Total: 0}).Percent(); p != 1 {
		t.Errorf("empty wave percent = %v, want 1", p)
	}
	if p := (Snapshot{Total: 4, Completed: 1}).Percent(); p != 0.25 {
		t.Errorf("percent = %v, want 0.25", p)
	}
}

func TestFailureRecordString(t *testing.T) {
	plain := FailureRecord{Key: key("41"), Phase: model.PhaseProcessing}
	if got := plain.String(); got != "41" {
		t.Errorf("plain failure = %q", got)
	}
	tagged := FailureRecord{Key: key("42"), Phase: model.PhaseRedownloadFailed}
	if got := tagged.String(); got != "42 (redownload_failed)" {
		t.Errorf("tagged failure = %q", got)
	}
}
