// Package installer turns a Windows ISO into a bootable installer drive.
//
// A run is a fixed sequence of stages: preflight, input acquisition, mount,
// prepare, copy, payload and release. Each stage returns a
// *errors.StageError on failure. Once the source image is mounted, every
// failing stage releases it before the run ends; a failed release at the
// end of an otherwise successful run is only a warning.
package installer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/macwinusb/winusb/pkg/diskutil"
	"github.com/macwinusb/winusb/pkg/errors"
	"github.com/macwinusb/winusb/pkg/isoinspect"
	"github.com/macwinusb/winusb/pkg/payload"
	"github.com/macwinusb/winusb/pkg/prompt"
	"github.com/macwinusb/winusb/pkg/security"
	"github.com/spf13/afero"
)

// Stage names used in StageError.
const (
	StagePreflight = "preflight"
	StageAcquire   = "acquire"
	StageMount     = "mount"
	StagePrepare   = "prepare"
	StageCopy      = "copy"
	StagePayload   = "payload"
	StageRelease   = "release"
)

// Config holds the per-run settings.
type Config struct {
	// Verbose turns on diagnostic output and tool progress.
	Verbose bool
	// VolumeLabel is the label given to the erased device.
	VolumeLabel string
	// TargetMountPoint is where the formatted volume is expected to appear.
	// Empty means /Volumes/<VolumeLabel>.
	TargetMountPoint string
	// PayloadRelPath is the install image inside the source tree.
	PayloadRelPath string
	// PartSizeMiB caps each split part.
	PartSizeMiB int
}

func (c Config) withDefaults() Config {
	if c.VolumeLabel == "" {
		c.VolumeLabel = diskutil.DefaultVolumeLabel
	}
	if c.TargetMountPoint == "" {
		c.TargetMountPoint = diskutil.VolumePath(c.VolumeLabel)
	}
	if c.PayloadRelPath == "" {
		c.PayloadRelPath = payload.DefaultRelPath
	}
	if c.PartSizeMiB <= 0 {
		c.PartSizeMiB = payload.DefaultPartSizeMiB
	}
	return c
}

// InspectFunc previews the payload decision for an image.
type InspectFunc func(imagePath, relPath string) (isoinspect.Preview, error)

// Deps are the collaborators of a Pipeline. Zero values get defaults where
// one exists; Tools and UI are required.
type Deps struct {
	Tools     diskutil.Toolchain
	UI        prompt.UI
	FS        afero.Fs
	Validator *security.Validator
	Preflight func() error
	Fetcher   Fetcher
	Inspect   InspectFunc
	Journal   Journal
}

// Inputs are the operator's answers for one run.
type Inputs struct {
	RunKey      string
	SourceImage string
	SHA256      string
	Device      string
}

// Result describes a completed run.
type Result struct {
	Inputs       Inputs
	MountPoint   string
	Payload      payload.Result
	Warnings     []string
	DetachFailed bool
}

// Pipeline runs the installer stages.
type Pipeline struct {
	cfg       Config
	tools     diskutil.Toolchain
	ui        prompt.UI
	fs        afero.Fs
	policy    *payload.Policy
	validator *security.Validator
	preflight func() error
	fetcher   Fetcher
	inspect   InspectFunc
	journal   Journal
}

// New builds a Pipeline.
func New(cfg Config, deps Deps) *Pipeline {
	cfg = cfg.withDefaults()

	if deps.FS == nil {
		deps.FS = afero.NewOsFs()
	}
	if deps.Validator == nil {
		deps.Validator = security.NewValidator(security.SystemBootDisk)
	}
	if deps.Preflight == nil {
		deps.Preflight = func() error { return diskutil.CheckPrerequisites(nil) }
	}
	if deps.Inspect == nil {
		deps.Inspect = isoinspect.InspectFile
	}
	if deps.Journal == nil {
		deps.Journal = nopJournal{}
	}

	return &Pipeline{
		cfg:       cfg,
		tools:     deps.Tools,
		ui:        deps.UI,
		fs:        deps.FS,
		policy:    payload.NewPolicy(deps.FS, deps.Tools, cfg.PartSizeMiB),
		validator: deps.Validator,
		preflight: deps.Preflight,
		fetcher:   deps.Fetcher,
		inspect:   deps.Inspect,
		journal:   deps.Journal,
	}
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Run performs a whole interactive run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if err := p.Preflight(); err != nil {
		return nil, err
	}

	in, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	return p.Execute(ctx, in)
}

// Execute runs every stage after input acquisition.
func (p *Pipeline) Execute(ctx context.Context, in Inputs) (*Result, error) {
	p.Begin(in)
	res := &Result{Inputs: in}

	mountPoint, err := p.Mount(ctx, in)
	if err != nil {
		return nil, p.Abort(ctx, "", err)
	}
	res.MountPoint = mountPoint

	if err := p.Prepare(ctx, in); err != nil {
		return nil, p.Abort(ctx, mountPoint, err)
	}

	if err := p.CopyTree(ctx, mountPoint); err != nil {
		return nil, p.Abort(ctx, mountPoint, err)
	}

	pr, warning, err := p.Payload(ctx, mountPoint)
	if err != nil {
		return nil, p.Abort(ctx, mountPoint, err)
	}
	res.Payload = pr
	if warning != "" {
		res.Warnings = append(res.Warnings, warning)
	}

	if err := p.Release(ctx, mountPoint); err != nil {
		res.DetachFailed = true
		res.Warnings = append(res.Warnings, err.Error())
	}

	p.Finish(res)
	return res, nil
}

// Preflight checks the platform and required tools.
func (p *Pipeline) Preflight() error {
	p.ui.Debug(p.cfg.Verbose, "checking required tools")
	if err := p.preflight(); err != nil {
		return errors.NewStage(errors.KindEnvironment, StagePreflight, err)
	}
	return nil
}

// Begin opens the journal entry for a run.
func (p *Pipeline) Begin(in Inputs) {
	p.note(p.journal.Begin(in))
}

// Mount attaches the source image and returns its mount point.
func (p *Pipeline) Mount(ctx context.Context, in Inputs) (string, error) {
	p.ui.Printf("Mounting %s...\n", in.SourceImage)

	mountPoint, err := p.tools.Attach(ctx, in.SourceImage)
	if err == nil && mountPoint == "" {
		err = diskutil.ErrMountPointNotFound
	}
	if err != nil {
		return "", errors.NewStage(errors.KindDestructive, StageMount, err)
	}

	p.ui.Debug(p.cfg.Verbose, "image mounted at %s", mountPoint)
	p.note(p.journal.Mounted(mountPoint))
	return mountPoint, nil
}

// Prepare erases the target device and checks the new volume appeared.
func (p *Pipeline) Prepare(ctx context.Context, in Inputs) error {
	p.ui.Printf("Erasing %s as %s (FAT32, MBR)...\n", in.Device, p.cfg.VolumeLabel)

	spec := diskutil.EraseSpec{
		Filesystem: diskutil.DefaultFilesystem,
		Label:      p.cfg.VolumeLabel,
		Scheme:     diskutil.DefaultPartitionScheme,
		Device:     in.Device,
	}
	if err := p.tools.Erase(ctx, spec); err != nil {
		return errors.NewStage(errors.KindDestructive, StagePrepare, err)
	}

	ok, err := afero.DirExists(p.fs, p.cfg.TargetMountPoint)
	if err != nil || !ok {
		return errors.NewStage(errors.KindDestructive, StagePrepare,
			fmt.Errorf("formatted volume did not appear at %s", p.cfg.TargetMountPoint))
	}

	p.note(p.journal.Advance(StatusPrepared))
	return nil
}

// CopyTree copies everything except the payload onto the target volume.
func (p *Pipeline) CopyTree(ctx context.Context, mountPoint string) error {
	p.ui.Printf("Copying files to %s (this takes a while)...\n", p.cfg.TargetMountPoint)

	spec := diskutil.CopySpec{
		Source:  mountPoint,
		Dest:    p.cfg.TargetMountPoint,
		Exclude: p.cfg.PayloadRelPath,
		Verbose: p.cfg.Verbose,
	}
	if err := p.tools.Copy(ctx, spec); err != nil {
		return errors.NewStage(errors.KindDestructive, StageCopy, err)
	}

	p.note(p.journal.Advance(StatusCopied))
	return nil
}

// Payload applies the split-or-copy policy. The returned warning is set
// when the image carries no payload.
func (p *Pipeline) Payload(ctx context.Context, mountPoint string) (payload.Result, string, error) {
	f := payload.File{
		SourcePath: filepath.Join(mountPoint, p.cfg.PayloadRelPath),
		DestDir:    filepath.Join(p.cfg.TargetMountPoint, filepath.Dir(p.cfg.PayloadRelPath)),
	}

	res, err := p.policy.Apply(ctx, f)
	if err != nil {
		return payload.Result{}, "", errors.NewStage(errors.KindDestructive, StagePayload, err)
	}

	switch res.Action {
	case payload.ActionAbsent:
		warning := fmt.Sprintf("%s not found on the image; continuing without it", p.cfg.PayloadRelPath)
		p.ui.Warn("%s", warning)
		return res, warning, nil
	case payload.ActionSplit:
		p.ui.Printf("Split %s into %d MiB parts at %s\n", p.cfg.PayloadRelPath, p.cfg.PartSizeMiB, res.Dest)
	default:
		p.ui.Printf("Copied %s\n", p.cfg.PayloadRelPath)
	}
	return res, "", nil
}

// Release detaches the source image. It still runs after ctx is
// cancelled. Its error is always KindCleanup.
func (p *Pipeline) Release(ctx context.Context, mountPoint string) error {
	p.ui.Debug(p.cfg.Verbose, "detaching %s", mountPoint)

	if err := p.tools.Detach(context.WithoutCancel(ctx), mountPoint); err != nil {
		p.ui.Warn("could not detach %s: %v", mountPoint, err)
		return errors.NewStage(errors.KindCleanup, StageRelease, err)
	}

	p.note(p.journal.Released())
	return nil
}

// Abort releases the mounted image, if any, records the failure and
// returns cause unchanged.
func (p *Pipeline) Abort(ctx context.Context, mountPoint string, cause error) error {
	slog.Error("run_failed", "stage", errors.StageOf(cause), "kind", errors.KindOf(cause).String(), "error", cause)

	if mountPoint != "" {
		// The failure is already being reported; a release error only adds
		// a warning.
		_ = p.Release(ctx, mountPoint)
	}

	p.note(p.journal.Finish(StatusFailed, nil, cause))
	return cause
}

// Finish records a completed run.
func (p *Pipeline) Finish(res *Result) {
	status := StatusComplete
	if res.DetachFailed {
		status = StatusDetachFailed
	}
	p.note(p.journal.Finish(status, res, nil))
}

// note logs journal errors; history is never allowed to fail a run.
func (p *Pipeline) note(err error) {
	if err != nil {
		slog.Warn("journal_write_failed", "error", err)
	}
}

