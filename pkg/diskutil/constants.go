package diskutil

import "path/filepath"

// External tools driven by the toolchain.
const (
	ToolHdiutil  = "hdiutil"
	ToolDiskutil = "diskutil"
	ToolRsync    = "rsync"
	ToolWimlib   = "wimlib-imagex"
)

// Default target layout. FAT32 on an MBR scheme is what legacy BIOS and
// UEFI firmware both boot from.
const (
	// DefaultFilesystem is the diskutil personality for FAT32
	DefaultFilesystem = "MS-DOS"
	// DefaultPartitionScheme is the partition map written by eraseDisk
	DefaultPartitionScheme = "MBR"
	// DefaultVolumeLabel is the label given to the formatted volume
	DefaultVolumeLabel = "WININSTALL"
	// VolumesRoot is where macOS mounts new volumes
	VolumesRoot = "/Volumes"
)

// RequiredTools lists every tool a run invokes.
var RequiredTools = []string{ToolHdiutil, ToolDiskutil, ToolRsync, ToolWimlib}

// VolumePath returns the mount point macOS gives a freshly formatted volume
// with the given label.
func VolumePath(label string) string {
	return filepath.Join(VolumesRoot, label)
}
