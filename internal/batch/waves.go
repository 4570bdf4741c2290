package batch

import (
	"context"
	"fmt"
	"time"

	"scenesync/internal/logging"
	"scenesync/internal/model"
	"scenesync/internal/runstore"
	"scenesync/internal/scene"
)

// Status cadence intervals. A live terminal gets frequent updates; a
// redirected run gets a sparse durable log line instead.
const (
	ForegroundInterval = 30 * time.Second
	BackgroundInterval = 5 * time.Minute
)

// RunOptions configures one full multi-wave run.
type RunOptions struct {
	Scenes         []model.SceneKey
	DownloadDir    string
	Assets         []string
	SubsampleN     int
	Execute        bool
	SkipDownload   bool
	ForceReprocess bool
	Quiet          bool
	ValidateOnly   bool
	Workers        int
	UpdateInterval time.Duration
	// Progress enables the interactive dashboard when stdout is a
	// terminal. Unattended runs fall back to periodic log lines.
	Progress bool
}

// WaveReport is the serializable record of one wave.
type WaveReport struct {
	Label            string   `json:"label"`
	Total            int      `json:"total"`
	Completed        int      `json:"completed"`
	Succeeded        int      `json:"succeeded"`
	Skipped          int      `json:"skipped"`
	FailedDownloads  []string `json:"failed_downloads,omitempty"`
	FailedProcessing []string `json:"failed_processing,omitempty"`
	ElapsedSeconds   float64  `json:"elapsed_seconds"`
}

// RunReport is the final, persisted outcome of a run.
type RunReport struct {
	StartedAt          time.Time    `json:"started_at"`
	FinishedAt         time.Time    `json:"finished_at"`
	DownloadDir        string       `json:"download_dir"`
	Execute            bool         `json:"execute"`
	Waves              []WaveReport `json:"waves"`
	Interrupted        bool         `json:"interrupted"`
	RemovedPermanently []string     `json:"removed_permanently,omitempty"`
	ReportPath         string       `json:"-"`
}

// Totals sums the per-wave counters. Remediation waves revisit scenes, so
// succeeded/failed counts are taken per wave, not deduplicated.
func (r RunReport) Totals() (succeeded, skipped, failedDownload, failedProcessing int) {
	for _, w := range r.Waves {
		succeeded += w.Succeeded
		skipped += w.Skipped
		failedDownload += len(w.FailedDownloads)
		failedProcessing += len(w.FailedProcessing)
	}
	return
}

// Orchestrator sequences the fixed wave order: main, download-retry,
// intrinsics-repair, empty-directory-repair. Each wave's scene subset is
// derived from the previous waves' summaries, never from re-querying disk
// (the empty-directory wave scans disk only to test emptiness of scenes
// already recorded as successful).
type Orchestrator struct {
	Executor *Executor
	Shutdown *ShutdownController
	Log      *logging.Logger
}

type waveOutcome struct {
	summary Summary
	results []model.Result
}

// Run drives all waves and persists the report. A graceful shutdown stops
// wave advancement but still returns the partial report.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (RunReport, error) {
	report := RunReport{
		StartedAt:   time.Now(),
		DownloadDir: opts.DownloadDir,
		Execute:     opts.Execute,
	}

	mainSpec := func(key model.SceneKey) model.TaskSpec {
		return model.TaskSpec{
			Key:            key,
			DownloadDir:    opts.DownloadDir,
			Assets:         opts.Assets,
			SubsampleN:     opts.SubsampleN,
			Execute:        opts.Execute,
			SkipDownload:   opts.SkipDownload,
			ForceReprocess: opts.ForceReprocess,
			Quiet:          opts.Quiet,
		}
	}

	main := o.runWave(ctx, "main", opts.Scenes, opts, mainSpec)
	report.Waves = append(report.Waves, toWaveReport(main.summary))

	if opts.ValidateOnly {
		return o.finish(report)
	}

	// Download-retry: exactly the main wave's download failures, forced.
	// Scenes that fail again here are deleted; a scene that fails a full
	// forced redownload is unrecoverable for this run.
	retrySpec := func(key model.SceneKey) model.TaskSpec {
		s := mainSpec(key)
		s.SkipDownload = false
		s.ForceReprocess = true
		s.RedownloadAttempt = 1
		return s
	}
	if retry := o.runWaveIfAny(ctx, "download-retry", main.summary.FailedDownloads, opts, retrySpec); retry != nil {
		report.Waves = append(report.Waves, toWaveReport(retry.summary))
		for _, res := range retry.results {
			if res.Success {
				continue
			}
			// Intrinsics-flagged scenes stay on disk: the dedicated repair
			// wave below gets one more chance at them.
			if res.Phase == model.PhaseRemovedMissingIntrinsics {
				continue
			}
			o.removePermanently(&report, res.Key, opts.Execute, "failed forced redownload")
		}
		main.summary.MissingIntrinsics = append(main.summary.MissingIntrinsics, retry.summary.MissingIntrinsics...)
		main.summary.Successful = append(main.summary.Successful, retry.summary.Successful...)
	}

	// Intrinsics-repair: scenes flagged by any prior wave. Flagged scenes
	// were left on disk, so one more fetch can fill the gap.
	intrinsicsSpec := func(key model.SceneKey) model.TaskSpec {
		s := mainSpec(key)
		s.SkipDownload = false
		s.RedownloadAttempt = 1
		return s
	}
	if repair := o.runWaveIfAny(ctx, "intrinsics-repair", main.summary.MissingIntrinsics, opts, intrinsicsSpec); repair != nil {
		report.Waves = append(report.Waves, toWaveReport(repair.summary))
		main.summary.Successful = append(main.summary.Successful, repair.summary.Successful...)
	}

	// Empty-directory-repair: successful scenes whose asset dirs exist but
	// hold zero files get one last forced fetch; still-empty scenes are
	// deleted.
	empty := o.scenesWithEmptyDirs(main.summary.Successful, opts)
	emptySpec := func(key model.SceneKey) model.TaskSpec {
		s := mainSpec(key)
		s.SkipDownload = false
		s.ForceReprocess = true
		s.RedownloadAttempt = 2
		return s
	}
	if fix := o.runWaveIfAny(ctx, "empty-dir-repair", empty, opts, emptySpec); fix != nil {
		report.Waves = append(report.Waves, toWaveReport(fix.summary))
		for _, res := range fix.results {
			stillEmpty := !res.Success
			if res.Success {
				stillEmpty = len(scene.EmptyAssetDirs(res.Key.Path(opts.DownloadDir), opts.Assets)) > 0
			}
			if stillEmpty {
				o.removePermanently(&report, res.Key, opts.Execute, "asset directory empty after redownload")
			}
		}
	}

	return o.finish(report)
}

func (o *Orchestrator) finish(report RunReport) (RunReport, error) {
	report.FinishedAt = time.Now()
	report.Interrupted = o.Shutdown != nil && o.Shutdown.Requested()

	path := runstore.ReportPath(report.DownloadDir, report.StartedAt)
	if err := runstore.WriteJSON(path, report); err != nil {
		return report, fmt.Errorf("persist run report: %w", err)
	}
	report.ReportPath = path
	return report, nil
}

// runWaveIfAny applies the wave-boundary guards: an empty subset or a
// pending shutdown skips the wave entirely.
func (o *Orchestrator) runWaveIfAny(ctx context.Context, label string, keys []model.SceneKey, opts RunOptions, build func(model.SceneKey) model.TaskSpec) *waveOutcome {
	if len(keys) == 0 {
		return nil
	}
	if o.Shutdown != nil && o.Shutdown.Requested() {
		o.Log.Warn("shutdown requested, skipping %s wave (%d scenes)", label, len(keys))
		return nil
	}
	out := o.runWave(ctx, label, keys, opts, build)
	return &out
}

func (o *Orchestrator) runWave(ctx context.Context, label string, keys []model.SceneKey, opts RunOptions, build func(model.SceneKey) model.TaskSpec) waveOutcome {
	specs := make([]model.TaskSpec, len(keys))
	for i, key := range keys {
		specs[i] = build(key)
	}

	o.Log.Info("%s wave: %d scenes, %d workers", label, len(specs), opts.Workers)

	tracker := NewTracker(label, len(specs))
	var dash *Dashboard
	interval := opts.UpdateInterval
	if o.Log.Background() {
		if interval <= 0 {
			interval = BackgroundInterval
		}
		tracker.StartCadence(&logSink{log: o.Log}, interval)
	} else if opts.Progress {
		dash = StartDashboard(label, len(specs), o.Shutdown)
		if interval <= 0 {
			interval = time.Second
		}
		tracker.StartCadence(dash, interval)
	} else {
		if interval <= 0 {
			interval = ForegroundInterval
		}
		tracker.StartCadence(&logSink{log: o.Log}, interval)
	}

	pool := &Pool{Workers: opts.Workers, Shutdown: o.Shutdown}
	results := make([]model.Result, 0, len(specs))
	for res := range pool.Run(ctx, specs, o.Executor.Execute) {
		tracker.Record(res)
		results = append(results, res)
		o.reportResult(dash, res)
	}

	summary := tracker.Finalize()
	if dash != nil {
		snap := Snapshot{
			Label:            summary.Label,
			Total:            summary.Total,
			Completed:        summary.Completed,
			Succeeded:        summary.Succeeded,
			Skipped:          summary.Skipped,
			FailedDownloads:  len(summary.FailedDownloads),
			FailedProcessing: len(summary.FailedProcessing),
			Elapsed:          summary.Elapsed,
		}
		if err := dash.Finish(snap); err != nil {
			o.Log.Warn("dashboard exited with error: %v", err)
		}
	}

	o.Log.Info("%s wave done: %d succeeded, %d skipped, %d download failures, %d processing failures (%s)",
		label, summary.Succeeded, summary.Skipped,
		len(summary.FailedDownloads), len(summary.FailedProcessing),
		summary.Elapsed.Round(time.Second))

	return waveOutcome{summary: summary, results: results}
}

// reportResult surfaces individual failures as they happen. The dashboard
// gets an event line; unattended runs get a log line so a tail of the log
// shows failures without waiting for the wave summary.
func (o *Orchestrator) reportResult(dash *Dashboard, res model.Result) {
	if res.Success {
		o.Log.Debug("scene %s: %s", res.Key, res.Phase)
		return
	}
	if dash != nil {
		dash.Event(fmt.Sprintf("fail %s: %s", res.Key, res.Phase))
	}
	o.Log.Warn("scene %s failed in phase %s: %s", res.Key, res.Phase, res.Err)
}

func (o *Orchestrator) removePermanently(report *RunReport, key model.SceneKey, execute bool, why string) {
	path := key.Path(report.DownloadDir)
	if !execute {
		o.Log.Warn("[dry] would remove %s: %s", path, why)
		return
	}
	if err := scene.Remove(path); err != nil {
		o.Log.Error("remove %s: %v", path, err)
		return
	}
	o.Log.Warn("removed %s: %s", path, why)
	report.RemovedPermanently = append(report.RemovedPermanently, key.String())
}

func (o *Orchestrator) scenesWithEmptyDirs(successful []model.SceneKey, opts RunOptions) []model.SceneKey {
	var out []model.SceneKey
	seen := make(map[model.SceneKey]bool, len(successful))
	for _, key := range successful {
		if seen[key] {
			continue
		}
		seen[key] = true
		if len(scene.EmptyAssetDirs(key.Path(opts.DownloadDir), opts.Assets)) > 0 {
			out = append(out, key)
		}
	}
	return out
}

func toWaveReport(s Summary) WaveReport {
	w := WaveReport{
		Label:          s.Label,
		Total:          s.Total,
		Completed:      s.Completed,
		Succeeded:      s.Succeeded,
		Skipped:        s.Skipped,
		ElapsedSeconds: s.Elapsed.Seconds(),
	}
	for _, k := range s.FailedDownloads {
		w.FailedDownloads = append(w.FailedDownloads, k.String())
	}
	for _, f := range s.FailedProcessing {
		w.FailedProcessing = append(w.FailedProcessing, f.String())
	}
	return w
}

// logSink is the unattended-mode StatusSink: one durable log line per
// cadence tick.
type logSink struct {
	log *logging.Logger
}

func (s *logSink) Publish(snap Snapshot) {
	s.log.Info("%s wave: %d/%d done (%d ok, %d skipped, %d dl-fail, %d proc-fail) %.1f/min eta %s",
		snap.Label, snap.Completed, snap.Total,
		snap.Succeeded, snap.Skipped, snap.FailedDownloads, snap.FailedProcessing,
		snap.RatePerMin, formatETA(snap.ETA))
}
