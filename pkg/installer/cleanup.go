package installer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/macwinusb/winusb/pkg/db"
	"github.com/macwinusb/winusb/pkg/diskutil"
	"github.com/macwinusb/winusb/pkg/errors"
	"github.com/spf13/afero"
)

// Reclaimer releases what an interrupted run left behind: the attached
// source image and any image downloaded for it.
type Reclaimer struct {
	Tools diskutil.Toolchain
	Repo  *db.Repository
	// FS is used to check whether a recorded mount point still exists. Nil
	// means the OS filesystem.
	FS afero.Fs
	// Downloads is the directory S3 images are fetched into. Source images
	// outside it are never removed.
	Downloads string
}

// Reclaim detaches the run's image if it may still be attached, removes its
// downloaded source and marks the run cleaned. A mount point that no longer
// exists (reboot, manual eject) needs no detach. A failed detach leaves the
// run untouched so it can be retried.
func (r *Reclaimer) Reclaim(ctx context.Context, run *db.Run) error {
	slog.Info("reclaim_start", "run_key", run.RunKey, "mount_point", run.MountPoint, "status", run.Status)

	if run.HoldsMount() && !r.mounted(run.MountPoint) {
		slog.Info("reclaim_mount_gone", "run_key", run.RunKey, "mount_point", run.MountPoint)
		run.MountPoint = ""
	}

	if run.HoldsMount() {
		if err := r.Tools.Detach(ctx, run.MountPoint); err != nil {
			return errors.NewStage(errors.KindCleanup, StageRelease,
				fmt.Errorf("detach %s: %w", run.MountPoint, err))
		}
		run.MountPoint = ""
	}

	if r.isDownload(run.SourceImage) {
		if err := os.Remove(run.SourceImage); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "failed to remove downloaded image")
		}
		slog.Info("reclaim_download_removed", "path", run.SourceImage)
	}

	run.Status = db.StatusCleaned
	if err := r.Repo.Update(run); err != nil {
		return errors.Wrap(err, "failed to update run")
	}

	slog.Info("reclaim_complete", "run_key", run.RunKey)
	return nil
}

func (r *Reclaimer) mounted(mountPoint string) bool {
	fs := r.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}
	ok, err := afero.DirExists(fs, mountPoint)
	if err != nil {
		// Unknown; let the detach decide.
		return true
	}
	return ok
}

func (r *Reclaimer) isDownload(path string) bool {
	if r.Downloads == "" || path == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(r.Downloads), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}
