package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/macwinusb/winusb/pkg/errors"
	"github.com/macwinusb/winusb/pkg/storage"
	"github.com/spf13/afero"
)

// Acquire asks the operator for the source image and target device and
// collects both destructive-action confirmations. Nothing has been mounted
// or erased when it returns an error.
func (p *Pipeline) Acquire(ctx context.Context) (Inputs, error) {
	in := Inputs{RunKey: uuid.NewString()}

	ref, err := p.ui.Ask("Path to the Windows ISO (or s3://bucket/key): ")
	if err != nil {
		return Inputs{}, inputErr(errors.Wrap(err, "no source image given"))
	}
	ref = NormalizePath(ref)

	if storage.IsS3URL(ref) {
		if p.fetcher == nil {
			return Inputs{}, inputErr(fmt.Errorf("s3 sources are not configured"))
		}
		p.ui.Printf("Downloading %s...\n", ref)
		local, sum, err := p.fetcher.Fetch(ctx, ref)
		if err != nil {
			return Inputs{}, inputErr(err)
		}
		p.ui.Debug(p.cfg.Verbose, "downloaded to %s (sha256 %s)", local, sum)
		in.SourceImage, in.SHA256 = local, sum
	} else {
		in.SourceImage = ref
	}

	if err := p.validator.ValidateSourceImage(in.SourceImage); err != nil {
		return Inputs{}, inputErr(err)
	}

	// macOS mounts a second volume with the same label under another path.
	if exists, _ := afero.DirExists(p.fs, p.cfg.TargetMountPoint); exists {
		return Inputs{}, inputErr(fmt.Errorf("%s is already mounted; eject it or pick another volume label", p.cfg.TargetMountPoint))
	}

	p.previewPayload(in.SourceImage)

	listing, err := p.tools.ListDevices(ctx)
	if err != nil {
		p.ui.Warn("could not list devices: %v", err)
	} else {
		p.ui.Println(listing)
	}

	p.ui.Danger("The target disk will be ERASED. Every partition on it will be lost.")
	ok, err := p.ui.Confirm("Do you understand and want to continue?")
	if err != nil {
		return Inputs{}, inputErr(errors.Wrap(err, "no confirmation given"))
	}
	if !ok {
		return Inputs{}, inputErr(fmt.Errorf("cancelled by operator"))
	}

	device, err := p.ui.Ask("Target disk identifier from the list above (e.g. disk4): ")
	if err != nil {
		return Inputs{}, inputErr(errors.Wrap(err, "no device given"))
	}
	if err := p.validator.ValidateDeviceIdentifier(device); err != nil {
		return Inputs{}, inputErr(err)
	}
	in.Device = device

	ok, err = p.ui.Confirm(fmt.Sprintf("Erase %s and ALL data on it?", device))
	if err != nil {
		return Inputs{}, inputErr(errors.Wrap(err, "no confirmation given"))
	}
	if !ok {
		return Inputs{}, inputErr(fmt.Errorf("cancelled by operator; %s was not touched", device))
	}

	return in, nil
}

func (p *Pipeline) previewPayload(imagePath string) {
	preview, err := p.inspect(imagePath, p.cfg.PayloadRelPath)
	if err != nil {
		p.ui.Debug(p.cfg.Verbose, "payload preview unavailable: %v", err)
		return
	}
	p.ui.Printf("Preview: %s\n", preview)
}

func inputErr(err error) error {
	return errors.NewStage(errors.KindInput, StageAcquire, err)
}

// NormalizePath cleans a path typed or dragged into a terminal: surrounding
// whitespace and quotes are dropped, backslash-escaped spaces are unescaped
// and a leading ~/ expands to the home directory. S3 URLs pass through
// trimmed.
func NormalizePath(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		s = s[1 : len(s)-1]
	}
	if storage.IsS3URL(s) {
		return s
	}
	s = strings.ReplaceAll(s, `\ `, " ")
	if strings.HasPrefix(s, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			s = filepath.Join(home, s[2:])
		}
	}
	return s
}
