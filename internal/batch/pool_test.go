package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"scenesync/internal/model"
)

func makeSpecs(n int) []model.TaskSpec {
	specs := make([]model.TaskSpec, n)
	for i := range specs {
		specs[i] = model.TaskSpec{Key: key(fmt.Sprintf("%d", i))}
	}
	return specs
}

func TestPoolRunsEveryTaskOnce(t *testing.T) {
	specs := makeSpecs(50)
	pool := &Pool{Workers: 8}

	var mu sync.Mutex
	seen := make(map[string]int)
	exec := func(_ context.Context, spec model.TaskSpec) model.Result {
		mu.Lock()
		seen[spec.Key.VideoID]++
		mu.Unlock()
		return model.Result{Key: spec.Key, Success: true, Phase: model.PhaseCompleted}
	}

	count := 0
	for range pool.Run(context.Background(), specs, exec) {
		count++
	}
	if count != len(specs) {
		t.Fatalf("results = %d, want %d", count, len(specs))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("scene %s executed %d times", id, n)
		}
	}
	if pool.Dispatched() != len(specs) {
		t.Errorf("dispatched = %d, want %d", pool.Dispatched(), len(specs))
	}
}

func TestPoolSingleWorkerPreservesOrder(t *testing.T) {
	specs := makeSpecs(20)
	pool := &Pool{Workers: 1}

	exec := func(_ context.Context, spec model.TaskSpec) model.Result {
		return model.Result{Key: spec.Key, Success: true, Phase: model.PhaseCompleted}
	}

	var got []string
	for res := range pool.Run(context.Background(), specs, exec) {
		got = append(got, res.Key.VideoID)
	}
	for i, id := range got {
		if id != fmt.Sprintf("%d", i) {
			t.Fatalf("position %d = %s, single worker must preserve submission order", i, id)
		}
	}
}

func TestPoolStopsDispatchOnShutdown(t *testing.T) {
	specs := makeSpecs(100)
	sc := NewShutdownController()
	pool := &Pool{Workers: 2, Shutdown: sc}

	started := make(chan struct{}, len(specs))
	release := make(chan struct{})

	exec := func(_ context.Context, spec model.TaskSpec) model.Result {
		started <- struct{}{}
		<-release
		return model.Result{Key: spec.Key, Success: true, Phase: model.PhaseCompleted}
	}

	results := pool.Run(context.Background(), specs, exec)

	<-started
	<-started
	sc.RequestShutdown()
	close(release)

	count := 0
	for range results {
		count++
	}
	if count >= len(specs) {
		t.Fatalf("shutdown did not stop dispatch: %d results", count)
	}
	if pool.Cancelled() == 0 {
		t.Fatal("expected cancelled tasks after shutdown")
	}
	if pool.Dispatched()+pool.Cancelled() > len(specs)+2 {
		t.Fatalf("dispatched %d + cancelled %d inconsistent with %d specs",
			pool.Dispatched(), pool.Cancelled(), len(specs))
	}
}

func TestPoolHonorsContextCancellation(t *testing.T) {
	specs := makeSpecs(100)
	pool := &Pool{Workers: 1}

	ctx, cancel := context.WithCancel(context.Background())
	exec := func(_ context.Context, spec model.TaskSpec) model.Result {
		cancel()
		time.Sleep(5 * time.Millisecond)
		return model.Result{Key: spec.Key, Success: true, Phase: model.PhaseCompleted}
	}

	count := 0
	for range pool.Run(ctx, specs, exec) {
		count++
	}
	if count == len(specs) {
		t.Fatal("context cancellation did not stop dispatch")
	}
}
