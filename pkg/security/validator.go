package security

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// deviceIdentifierPattern matches whole-disk identifiers such as disk4.
// Partition slices (disk4s1) and /dev paths are rejected.
var deviceIdentifierPattern = regexp.MustCompile(`^disk[0-9]+$`)

// BootDiskFunc reports the whole-disk identifier backing the running
// system's root filesystem, or "" when it cannot be determined.
type BootDiskFunc func() (string, error)

// Validator checks operator input before anything destructive happens
type Validator struct {
	bootDisk BootDiskFunc
}

// NewValidator creates a new input validator. A nil bootDisk disables the
// boot disk guard.
func NewValidator(bootDisk BootDiskFunc) *Validator {
	return &Validator{bootDisk: bootDisk}
}

// ValidateSourceImage checks that path names an existing regular file
func (v *Validator) ValidateSourceImage(path string) error {
	if strings.TrimSpace(path) == "" {
		slog.Error("security_source_validation_failed", "path", path, "reason", "empty")
		return fmt.Errorf("source image path is empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		slog.Error("security_source_validation_failed", "path", path, "reason", "stat", "error", err)
		return fmt.Errorf("source image %s does not exist or is not accessible: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		slog.Error("security_source_validation_failed", "path", path, "reason", "not_regular_file", "mode", info.Mode().String())
		return fmt.Errorf("source image %s is not a regular file", path)
	}

	slog.Debug("security_source_validated", "path", path, "size_mb", info.Size()/1024/1024)
	return nil
}

// ValidateDeviceIdentifier checks a target identifier against the strict
// whole-disk pattern and refuses the disk the system booted from.
func (v *Validator) ValidateDeviceIdentifier(id string) error {
	if !deviceIdentifierPattern.MatchString(id) {
		slog.Error("security_device_validation_failed", "device", id, "reason", "pattern")
		return fmt.Errorf("invalid device identifier %q: expected a whole disk such as disk4 (no /dev/ prefix, no partition suffix)", id)
	}

	if v.bootDisk == nil {
		return nil
	}
	boot, err := v.bootDisk()
	if err != nil {
		// Not knowing the boot disk must not block a run; the pattern check
		// and the two confirmations still apply.
		slog.Warn("security_boot_disk_unknown", "error", err)
		return nil
	}
	if boot != "" && boot == id {
		slog.Error("security_device_validation_failed", "device", id, "reason", "boot_disk")
		return fmt.Errorf("refusing to erase %s: it holds the running system", id)
	}

	slog.Debug("security_device_validated", "device", id)
	return nil
}

// ValidatePath checks that a path inside the image stays inside it
func (v *Validator) ValidatePath(relPath string) error {
	if relPath == "" {
		slog.Error("security_path_validation_failed", "path", relPath, "reason", "empty")
		return fmt.Errorf("security: empty path")
	}

	if filepath.IsAbs(relPath) {
		slog.Error("security_path_validation_failed", "path", relPath, "reason", "absolute_path")
		return fmt.Errorf("security: absolute path not allowed: %s", relPath)
	}

	clean := filepath.Clean(relPath)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		slog.Error("security_path_validation_failed", "path", relPath, "reason", "path_traversal")
		return fmt.Errorf("security: path traversal detected: %s", relPath)
	}

	return nil
}

// ValidateVolumeLabel checks a FAT volume label: 1-11 characters, upper
// case letters, digits, '_' or '-'.
func (v *Validator) ValidateVolumeLabel(label string) error {
	if len(label) == 0 || len(label) > 11 {
		return fmt.Errorf("volume label %q must be 1-11 characters", label)
	}
	for _, r := range label {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return fmt.Errorf("volume label %q may only contain A-Z, 0-9, '_' and '-'", label)
		}
	}
	return nil
}
