// Package fetch invokes the external download command that places a
// scene's asset files on disk. The command is the only network actor in
// the system; this package treats any non-zero exit or timeout
// identically as failure.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"scenesync/internal/model"
)

const (
	// DefaultCommand is the asset download collaborator. One invocation
	// fetches one (scene, asset) pair.
	DefaultCommand = "download_data"

	// DefaultAssetTimeout bounds a single asset fetch.
	DefaultAssetTimeout = 15 * time.Minute

	// maxAssetFetches limits concurrent fetches within one scene.
	maxAssetFetches = 4
)

// Client runs the download command. The zero value is not usable; use New.
type Client struct {
	command []string
	timeout time.Duration
	quiet   bool
	stdout  io.Writer
	stderr  io.Writer
}

// Options configures the client.
type Options struct {
	// Command is the collaborator command line, e.g. "download_data" or
	// "python3 download_data.py". Split on whitespace.
	Command string
	// Timeout is the per-asset fetch timeout.
	Timeout time.Duration
	// Quiet discards collaborator output; otherwise it is streamed to
	// Stdout/Stderr.
	Quiet  bool
	Stdout io.Writer
	Stderr io.Writer
}

func New(opts Options) *Client {
	cmdLine := strings.TrimSpace(opts.Command)
	if cmdLine == "" {
		cmdLine = DefaultCommand
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultAssetTimeout
	}
	return &Client{
		command: strings.Fields(cmdLine),
		timeout: timeout,
		quiet:   opts.Quiet,
		stdout:  opts.Stdout,
		stderr:  opts.Stderr,
	}
}

// CheckDependencies verifies the download command is on PATH.
func (c *Client) CheckDependencies() error {
	if len(c.command) == 0 {
		return fmt.Errorf("download command is not configured")
	}
	if _, err := exec.LookPath(c.command[0]); err != nil {
		return fmt.Errorf("missing dependency: %s is not installed or not on PATH", c.command[0])
	}
	return nil
}

// FetchScene downloads every requested asset for one scene, at most four
// concurrently, each bounded by the per-asset timeout. All assets must
// succeed; partial results are left on disk for the classifier to judge
// on the next pass.
func (c *Client) FetchScene(ctx context.Context, key model.SceneKey, downloadDir string, assets []string) error {
	if len(assets) == 0 {
		return fmt.Errorf("no assets requested for %s", key)
	}

	sem := make(chan struct{}, maxAssetFetches)
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)

	for _, asset := range assets {
		wg.Add(1)
		go func(asset string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := c.fetchAsset(ctx, key, downloadDir, asset); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(asset)
	}
	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("fetch %s: %w", key, errors.Join(errs...))
	}
	return nil
}

func (c *Client) fetchAsset(ctx context.Context, key model.SceneKey, downloadDir, asset string) error {
	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := append([]string{}, c.command[1:]...)
	args = append(args,
		"--split", string(key.Split),
		"--video_id", key.VideoID,
		"--download_dir", downloadDir,
		"--raw_dataset_assets", asset,
	)

	cmd := exec.CommandContext(fetchCtx, c.command[0], args...)
	if !c.quiet {
		cmd.Stdout = c.stdout
		cmd.Stderr = c.stderr
	}

	if err := cmd.Run(); err != nil {
		if fetchCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("asset %s: timed out after %s", asset, c.timeout)
		}
		return fmt.Errorf("asset %s: %w", asset, err)
	}
	return nil
}
