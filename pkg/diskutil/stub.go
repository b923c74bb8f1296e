//go:build !darwin

package diskutil

import (
	"context"
	"fmt"
	"io"
	"runtime"
)

// StubToolchain is a no-op toolchain for platforms without hdiutil and
// diskutil.
type StubToolchain struct{}

// NewToolchain creates a stub toolchain on non-macOS systems
func NewToolchain(stream io.Writer) (Toolchain, error) {
	return &StubToolchain{}, nil
}

// SupportedPlatform reports whether installer drives can be built here.
func SupportedPlatform() bool { return false }

func (t *StubToolchain) Attach(ctx context.Context, imagePath string) (string, error) {
	return "", fmt.Errorf("image attach not supported on %s", runtime.GOOS)
}

func (t *StubToolchain) Detach(ctx context.Context, mountPoint string) error {
	return fmt.Errorf("image detach not supported on %s", runtime.GOOS)
}

func (t *StubToolchain) ListDevices(ctx context.Context) (string, error) {
	return "", fmt.Errorf("device listing not supported on %s", runtime.GOOS)
}

func (t *StubToolchain) Erase(ctx context.Context, spec EraseSpec) error {
	return fmt.Errorf("device erase not supported on %s", runtime.GOOS)
}

func (t *StubToolchain) Copy(ctx context.Context, spec CopySpec) error {
	return fmt.Errorf("image copy not supported on %s", runtime.GOOS)
}

func (t *StubToolchain) Split(ctx context.Context, src, dst string, partSizeMiB int) error {
	return fmt.Errorf("image split not supported on %s", runtime.GOOS)
}
