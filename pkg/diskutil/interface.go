package diskutil

import "context"

// EraseSpec describes a whole-device erase.
type EraseSpec struct {
	Filesystem string
	Label      string
	Scheme     string
	Device     string
}

// CopySpec describes a recursive copy of a mounted tree.
type CopySpec struct {
	// Source is copied by contents, not as a directory.
	Source  string
	Dest    string
	Exclude string
	Verbose bool
}

// Toolchain drives the external tools used to build an installer drive.
type Toolchain interface {
	// Attach mounts a disk image and returns its mount point
	Attach(ctx context.Context, imagePath string) (string, error)

	// Detach releases a mounted image
	Detach(ctx context.Context, mountPoint string) error

	// ListDevices returns the attached-device listing for the operator
	ListDevices(ctx context.Context) (string, error)

	// Erase reformats a whole device
	Erase(ctx context.Context, spec EraseSpec) error

	// Copy mirrors a mounted tree onto the target volume
	Copy(ctx context.Context, spec CopySpec) error

	// Split breaks a WIM into numbered SWM parts of at most partSizeMiB
	Split(ctx context.Context, src, dst string, partSizeMiB int) error
}
