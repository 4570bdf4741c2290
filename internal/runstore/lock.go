package runstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	downloadLockDirName   = ".scenesync.lock"
	downloadLockOwnerFile = "owner.json"
)

// DownloadLock guards a download directory against concurrent runs. Two
// runs over the same tree would race on scene deletions, so execution
// requires the lock; lock acquisition uses mkdir, which is atomic on
// every filesystem we care about.
type DownloadLock struct {
	lockDir string
}

type downloadLockOwner struct {
	PID       int    `json:"pid"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
}

func AcquireDownloadLock(downloadDir string) (DownloadLock, error) {
	target := strings.TrimSpace(downloadDir)
	if target == "" {
		return DownloadLock{}, fmt.Errorf("download directory is required")
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return DownloadLock{}, fmt.Errorf("create download directory %s: %w", target, err)
	}

	lockDir := filepath.Join(target, downloadLockDirName)
	if err := os.Mkdir(lockDir, 0o755); err != nil {
		if os.IsExist(err) {
			ownerPath := filepath.Join(lockDir, downloadLockOwnerFile)
			var owner downloadLockOwner
			if readErr := ReadJSON(ownerPath, &owner); readErr == nil && owner.PID > 0 && owner.CreatedAt != "" {
				return DownloadLock{}, fmt.Errorf(
					"download directory is locked: %s (pid=%d created_at=%s host=%s)",
					target, owner.PID, owner.CreatedAt, owner.Hostname,
				)
			}
			return DownloadLock{}, fmt.Errorf("download directory is locked: %s", target)
		}
		return DownloadLock{}, fmt.Errorf("acquire download lock for %s: %w", target, err)
	}

	owner := downloadLockOwner{
		PID:       os.Getpid(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
	}
	ownerPath := filepath.Join(lockDir, downloadLockOwnerFile)
	if err := WriteJSON(ownerPath, owner); err != nil {
		_ = os.Remove(lockDir)
		return DownloadLock{}, fmt.Errorf("write download lock owner for %s: %w", target, err)
	}

	return DownloadLock{lockDir: lockDir}, nil
}

func (l DownloadLock) Release() error {
	if strings.TrimSpace(l.lockDir) == "" {
		return nil
	}
	_ = os.Remove(filepath.Join(l.lockDir, downloadLockOwnerFile))
	if err := os.Remove(l.lockDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release download lock %s: %w", l.lockDir, err)
	}
	return nil
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "unknown"
	}
	return host
}
