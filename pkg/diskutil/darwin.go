//go:build darwin

package diskutil

import (
	"io"
	"log/slog"
)

// NewToolchain creates the macOS toolchain.
func NewToolchain(stream io.Writer) (Toolchain, error) {
	slog.Info("toolchain_init", "platform", "darwin")
	return NewExecToolchain(OSExecutor{}, stream), nil
}

// SupportedPlatform reports whether installer drives can be built here.
func SupportedPlatform() bool { return true }
