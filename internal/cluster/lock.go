package cluster

import (
	"fmt"
	"log/slog"

	"github.com/giantswarm/ccmenv/internal/sentinel"
	"github.com/gofrs/flock"
)

// ErrInstallDirBusy is returned when another process already holds the
// lock for the same cluster name in the same install directory.
const ErrInstallDirBusy = sentinel.Error("cluster install directory is locked by another process")

// acquireInstallLock takes an exclusive non-blocking lock on lockPath.
// Two processes driving the same cluster directory would corrupt each
// other's external state, so a held lock fails fast instead of waiting.
func acquireInstallLock(lockPath string) (*flock.Flock, error) {
	fl := flock.New(lockPath)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire install lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("acquire install lock %s: %w", lockPath, ErrInstallDirBusy)
	}
	return fl, nil
}

// releaseInstallLock releases the lock. The lock file is intentionally
// left on disk: removing it races with another process acquiring it.
// Best-effort cleanup, so errors are logged, not returned.
func releaseInstallLock(log *slog.Logger, fl *flock.Flock) {
	if fl == nil {
		return
	}
	if err := fl.Close(); err != nil {
		log.Debug("failed to release install lock", "path", fl.Path(), "err", err)
	}
}
