package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"scenesync/internal/batch"
	"scenesync/internal/catalog"
	"scenesync/internal/config"
	"scenesync/internal/fetch"
	"scenesync/internal/logging"
	"scenesync/internal/model"
	"scenesync/internal/runstore"
)

// syncFlags carries every sync/validate flag plus which ones were set on
// the command line, so unset flags defer to the config file.
type syncFlags struct {
	fs *flag.FlagSet

	configPath     *string
	downloadDir    *string
	sceneList      *string
	split          *string
	start          *int
	count          *int
	subsample      *int
	workers        *int
	assets         *string
	command        *string
	timeout        *time.Duration
	updateInterval *time.Duration
	logFile        *string
	skipDownload   *bool
	execute        *bool
	force          *bool
	verbose        *bool
	noProgress     *bool

	set map[string]bool
}

func newSyncFlags(name string) *syncFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	f := &syncFlags{fs: fs, set: make(map[string]bool)}

	f.configPath = fs.String("config", "", "config file path (default scenesync.yaml if present)")
	f.downloadDir = fs.String("download-dir", "", "dataset root directory")
	f.sceneList = fs.String("scene-list", "", "scene list CSV (video_id,fold)")
	f.split = fs.String("split", "", "only process one split: Training or Validation")
	f.start = fs.Int("start", 0, "skip this many scenes from the front of the list")
	f.count = fs.Int("count", 0, "process at most this many scenes (0 = all)")
	f.subsample = fs.Int("subsample", 0, "keep every nth frame (1 = keep all)")
	f.workers = fs.Int("workers", 0, "concurrent scene workers")
	f.assets = fs.String("assets", "", "comma-separated asset list")
	f.command = fs.String("command", "", "external download command")
	f.timeout = fs.Duration("timeout", 0, "per-asset download timeout")
	f.updateInterval = fs.Duration("update-interval", 0, "progress update interval")
	f.logFile = fs.String("log-file", "", "log file path (default scenesync_<timestamp>.log)")
	f.skipDownload = fs.Bool("skip-download", false, "never invoke the download command")
	f.execute = fs.Bool("execute", false, "apply removals and subsampling (default is dry run)")
	f.force = fs.Bool("force", false, "reprocess every scene, bypassing the skip shortcut")
	f.verbose = fs.Bool("verbose", false, "echo collaborator output and debug lines")
	f.noProgress = fs.Bool("no-progress", false, "disable the interactive dashboard")

	return f
}

func (f *syncFlags) parse(args []string) (int, bool) {
	code, ok := parseArgs(f.fs, args)
	if !ok {
		return code, false
	}
	f.fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return exitOK, true
}

// resolveConfig layers config file, environment, then explicit flags.
func (f *syncFlags) resolveConfig() (config.Config, error) {
	cfg, err := config.Load(*f.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	if f.set["download-dir"] {
		cfg.DownloadDir = *f.downloadDir
	}
	if f.set["scene-list"] {
		cfg.SceneList = *f.sceneList
	}
	if f.set["assets"] {
		cfg.Assets = config.SplitAssets(*f.assets)
	}
	if f.set["subsample"] {
		cfg.Subsample = *f.subsample
	}
	if f.set["workers"] {
		cfg.Workers = *f.workers
	}
	if f.set["command"] {
		cfg.Command = *f.command
	}
	if f.set["timeout"] {
		cfg.AssetTimeout = *f.timeout
	}
	if f.set["update-interval"] {
		cfg.UpdateInterval = *f.updateInterval
	}
	if f.set["log-file"] {
		cfg.LogFile = *f.logFile
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// loadSceneSlice loads the catalog and applies split, start, and count.
func loadSceneSlice(cfg config.Config, splitRaw string, start, count int) ([]model.SceneKey, error) {
	var split model.Split
	if splitRaw != "" {
		var err error
		split, err = model.ParseSplit(splitRaw)
		if err != nil {
			return nil, err
		}
	}

	path := cfg.SceneList
	if !filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			path = filepath.Join(cfg.DownloadDir, "raw", cfg.SceneList)
		}
	}

	scenes, err := catalog.LoadScenes(path, split)
	if err != nil {
		return nil, err
	}

	if start > len(scenes) {
		start = len(scenes)
	}
	if start > 0 {
		scenes = scenes[start:]
	}
	if count > 0 && count < len(scenes) {
		scenes = scenes[:count]
	}
	return scenes, nil
}

func runSync(args []string) int {
	f := newSyncFlags("sync")
	if code, ok := f.parse(args); !ok {
		return code
	}
	return runReconcile(f, false)
}

// runReconcile is the shared body of sync and validate.
func runReconcile(f *syncFlags, validateOnly bool) int {
	cfg, err := f.resolveConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitUsage
	}

	scenes, err := loadSceneSlice(cfg, *f.split, *f.start, *f.count)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitError
	}
	if len(scenes) == 0 {
		fmt.Println("no scenes selected, nothing to do")
		return exitOK
	}

	logFile := cfg.LogFile
	if logFile == "" {
		logFile = logging.DefaultLogPath()
	}
	log, err := logging.New(logging.Options{LogFile: logFile, Verbose: *f.verbose})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitError
	}
	defer log.Close()

	execute := *f.execute && !validateOnly
	skipDownload := *f.skipDownload || validateOnly

	lock, err := runstore.AcquireDownloadLock(cfg.DownloadDir)
	if err != nil {
		log.Error("%v", err)
		return exitError
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn("%v", err)
		}
	}()

	client := fetch.New(fetch.Options{
		Command: cfg.Command,
		Timeout: cfg.AssetTimeout,
		Quiet:   !*f.verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	})
	if !skipDownload {
		if err := client.CheckDependencies(); err != nil {
			log.Error("%v", err)
			return exitError
		}
	}

	sc := batch.NewShutdownController()
	sc.OnInterrupt(func(first bool) {
		if first {
			log.Warn("shutdown requested: finishing in-flight scenes, interrupt again to abort")
		} else {
			log.Error("second interrupt, terminating now")
		}
	})
	sc.Install()

	mode := "dry run"
	if execute {
		mode = "execute"
	}
	if validateOnly {
		mode = "validate"
	}
	log.Info("processing %d scenes (%s), log file %s", len(scenes), mode, log.Path())

	orch := &batch.Orchestrator{
		Executor: &batch.Executor{
			Eligibility: catalog.LoadMetadata(cfg.DownloadDir),
			Fetcher:     client,
		},
		Shutdown: sc,
		Log:      log,
	}

	report, err := orch.Run(context.Background(), batch.RunOptions{
		Scenes:         scenes,
		DownloadDir:    cfg.DownloadDir,
		Assets:         cfg.Assets,
		SubsampleN:     cfg.Subsample,
		Execute:        execute,
		SkipDownload:   skipDownload,
		ForceReprocess: *f.force,
		Quiet:          !*f.verbose,
		ValidateOnly:   validateOnly,
		Workers:        cfg.Workers,
		UpdateInterval: cfg.UpdateInterval,
		Progress:       !*f.noProgress,
	})
	if err != nil {
		log.Error("%v", err)
		return exitError
	}

	if validateOnly {
		printValidationSummary(report)
	} else {
		fmt.Print(batch.RenderSummary(report, !log.Background()))
	}

	if report.Interrupted {
		return exitInterrupted
	}
	return exitOK
}
