// Package payload decides whether the Windows install image fits on a FAT32
// volume as a single file, and either copies it or splits it into SWM parts.
package payload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/macwinusb/winusb/pkg/errors"
	"github.com/spf13/afero"
)

const (
	// SplitThreshold is the largest payload copied as a single file. It sits
	// 1,000,000 bytes under the 4 GiB FAT32 ceiling to leave room for
	// rounding and metadata.
	SplitThreshold int64 = 4*1024*1024*1024 - 1_000_000

	// DefaultPartSizeMiB is the maximum size of each split part.
	DefaultPartSizeMiB = 4000

	// DefaultRelPath is where Windows media keeps the install image.
	DefaultRelPath = "sources/install.wim"
)

// Action is the outcome of the policy for one payload.
type Action string

const (
	ActionCopy   Action = "copy"
	ActionSplit  Action = "split"
	ActionAbsent Action = "absent"
)

// Decide picks split for payloads strictly larger than SplitThreshold and
// copy for everything else.
func Decide(size int64) Action {
	if size > SplitThreshold {
		return ActionSplit
	}
	return ActionCopy
}

// Splitter breaks a WIM file into numbered parts.
type Splitter interface {
	Split(ctx context.Context, src, dst string, partSizeMiB int) error
}

// File is the payload as found on the mounted source image.
type File struct {
	SourcePath string
	DestDir    string
}

// Result describes what Apply did.
type Result struct {
	Action Action
	Size   int64
	// Dest is the copied file, or the first part name template when split.
	Dest string
}

// Policy applies the split-or-copy decision.
type Policy struct {
	fs          afero.Fs
	splitter    Splitter
	partSizeMiB int
}

// NewPolicy creates a policy. A nil fs means the OS filesystem and a
// non-positive partSizeMiB means DefaultPartSizeMiB.
func NewPolicy(fs afero.Fs, splitter Splitter, partSizeMiB int) *Policy {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if partSizeMiB <= 0 {
		partSizeMiB = DefaultPartSizeMiB
	}
	return &Policy{fs: fs, splitter: splitter, partSizeMiB: partSizeMiB}
}

// Apply copies or splits the payload. A payload missing from the source is
// not an error; the result reports ActionAbsent.
func (p *Policy) Apply(ctx context.Context, f File) (Result, error) {
	info, err := p.fs.Stat(f.SourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("payload_absent", "path", f.SourcePath)
			return Result{Action: ActionAbsent}, nil
		}
		return Result{}, errors.Wrap(err, "failed to stat payload")
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("payload %s is a directory", f.SourcePath)
	}

	size := info.Size()
	action := Decide(size)
	slog.Info("payload_decided", "path", f.SourcePath, "size_mb", size/1024/1024, "action", action)

	switch action {
	case ActionSplit:
		return p.split(ctx, f, size)
	default:
		return p.copy(f, size)
	}
}

// SplitDest returns the SWM name template wimlib writes parts from:
// install.wim becomes install.swm, install2.swm, ...
func SplitDest(srcPath, destDir string) string {
	base := filepath.Base(srcPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(destDir, stem+".swm")
}

func (p *Policy) split(ctx context.Context, f File, size int64) (Result, error) {
	if p.splitter == nil {
		return Result{}, fmt.Errorf("payload needs splitting but no splitter is configured")
	}
	if err := p.fs.MkdirAll(f.DestDir, 0o755); err != nil {
		return Result{}, errors.Wrap(err, "failed to create payload destination")
	}

	dest := SplitDest(f.SourcePath, f.DestDir)
	if err := p.splitter.Split(ctx, f.SourcePath, dest, p.partSizeMiB); err != nil {
		return Result{}, errors.Wrap(err, "failed to split payload")
	}

	slog.Info("payload_split", "dest", dest, "part_size_mib", p.partSizeMiB)
	return Result{Action: ActionSplit, Size: size, Dest: dest}, nil
}

func (p *Policy) copy(f File, size int64) (Result, error) {
	if err := p.fs.MkdirAll(f.DestDir, 0o755); err != nil {
		return Result{}, errors.Wrap(err, "failed to create payload destination")
	}

	dest := filepath.Join(f.DestDir, filepath.Base(f.SourcePath))
	if err := copyFile(p.fs, f.SourcePath, dest); err != nil {
		return Result{}, errors.Wrap(err, "failed to copy payload")
	}

	slog.Info("payload_copied", "dest", dest, "size_mb", size/1024/1024)
	return Result{Action: ActionCopy, Size: size, Dest: dest}, nil
}

func copyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
