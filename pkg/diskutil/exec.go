package diskutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/macwinusb/winusb/pkg/errors"
)

// Command is one external tool invocation.
type Command struct {
	Name string
	Args []string
	// Stream, when set, receives the tool's output as it runs.
	Stream io.Writer
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Executor runs a Command and returns its combined output.
type Executor interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// OSExecutor runs commands with os/exec.
type OSExecutor struct{}

func (OSExecutor) Run(ctx context.Context, c Command) ([]byte, error) {
	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if c.Stream != nil {
		cmd.Stdout = io.MultiWriter(&buf, c.Stream)
		cmd.Stderr = io.MultiWriter(&buf, c.Stream)
	} else {
		cmd.Stdout = &buf
		cmd.Stderr = &buf
	}
	err := cmd.Run()
	return buf.Bytes(), err
}

// ExecToolchain implements Toolchain on top of hdiutil, diskutil, rsync and
// wimlib-imagex.
type ExecToolchain struct {
	exec Executor
	// Stream receives live output of long-running copy and split calls.
	Stream io.Writer
}

// NewExecToolchain builds an ExecToolchain. A nil executor means OSExecutor.
func NewExecToolchain(executor Executor, stream io.Writer) *ExecToolchain {
	if executor == nil {
		executor = OSExecutor{}
	}
	return &ExecToolchain{exec: executor, Stream: stream}
}

func (t *ExecToolchain) run(ctx context.Context, c Command) ([]byte, error) {
	slog.Debug("exec", "command", c.String())
	out, err := t.exec.Run(ctx, c)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		slog.Error("exec_failed", "command", c.String(), "output", msg, "error", err)
		if msg != "" {
			return out, fmt.Errorf("%s: %s: %w", c.Name, msg, err)
		}
		return out, fmt.Errorf("%s: %w", c.Name, err)
	}
	return out, nil
}

func (t *ExecToolchain) Attach(ctx context.Context, imagePath string) (string, error) {
	slog.Info("attach_image", "image", imagePath)

	out, err := t.run(ctx, Command{Name: ToolHdiutil, Args: []string{"attach", "-nobrowse", "-readonly", imagePath}})
	if err != nil {
		return "", errors.Wrap(err, "failed to attach image")
	}

	mountPoint, err := ParseMountPoint(string(out))
	if err != nil {
		slog.Error("attach_no_mount_point", "image", imagePath, "error", err)
		return "", errors.Wrap(err, "failed to attach image")
	}

	slog.Info("attach_complete", "image", imagePath, "mount_point", mountPoint)
	return mountPoint, nil
}

func (t *ExecToolchain) Detach(ctx context.Context, mountPoint string) error {
	slog.Info("detach_image", "mount_point", mountPoint)

	if _, err := t.run(ctx, Command{Name: ToolHdiutil, Args: []string{"detach", mountPoint}}); err != nil {
		return errors.Wrap(err, "failed to detach image")
	}

	slog.Info("detach_complete", "mount_point", mountPoint)
	return nil
}

func (t *ExecToolchain) ListDevices(ctx context.Context) (string, error) {
	out, err := t.run(ctx, Command{Name: ToolDiskutil, Args: []string{"list"}})
	if err != nil {
		return "", errors.Wrap(err, "failed to list devices")
	}
	return string(out), nil
}

func (t *ExecToolchain) Erase(ctx context.Context, spec EraseSpec) error {
	if spec.Device == "" || spec.Label == "" {
		return fmt.Errorf("erase: device and label are required")
	}
	fs := spec.Filesystem
	if fs == "" {
		fs = DefaultFilesystem
	}
	scheme := spec.Scheme
	if scheme == "" {
		scheme = DefaultPartitionScheme
	}

	slog.Info("erase_device", "device", spec.Device, "filesystem", fs, "label", spec.Label, "scheme", scheme)

	c := Command{Name: ToolDiskutil, Args: []string{"eraseDisk", fs, spec.Label, scheme, spec.Device}}
	if _, err := t.run(ctx, c); err != nil {
		return errors.Wrap(err, "failed to erase device")
	}

	slog.Info("erase_complete", "device", spec.Device)
	return nil
}

func (t *ExecToolchain) Copy(ctx context.Context, spec CopySpec) error {
	if spec.Source == "" || spec.Dest == "" {
		return fmt.Errorf("copy: source and destination are required")
	}

	args := []string{"-a"}
	if spec.Verbose {
		args = append(args, "-v", "--progress")
	}
	if spec.Exclude != "" {
		// A leading slash anchors the pattern at the transfer root.
		args = append(args, "--exclude=/"+strings.TrimPrefix(spec.Exclude, "/"))
	}
	args = append(args, withTrailingSlash(spec.Source), withTrailingSlash(spec.Dest))

	c := Command{Name: ToolRsync, Args: args}
	if spec.Verbose {
		c.Stream = t.Stream
	}

	slog.Info("copy_tree", "source", spec.Source, "dest", spec.Dest, "exclude", spec.Exclude)
	if _, err := t.run(ctx, c); err != nil {
		return errors.Wrap(err, "failed to copy image contents")
	}

	slog.Info("copy_complete", "dest", spec.Dest)
	return nil
}

func (t *ExecToolchain) Split(ctx context.Context, src, dst string, partSizeMiB int) error {
	if partSizeMiB <= 0 {
		return fmt.Errorf("split: part size must be positive, got %d", partSizeMiB)
	}

	slog.Info("split_wim", "source", src, "dest", dst, "part_size_mib", partSizeMiB)

	c := Command{
		Name:   ToolWimlib,
		Args:   []string{"split", src, dst, strconv.Itoa(partSizeMiB)},
		Stream: t.Stream,
	}
	if _, err := t.run(ctx, c); err != nil {
		return errors.Wrap(err, "failed to split install image")
	}

	slog.Info("split_complete", "dest", dst)
	return nil
}

func withTrailingSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}
