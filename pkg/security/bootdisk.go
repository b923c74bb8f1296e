package security

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// sliceSuffix strips partition (s1) and APFS snapshot (s1s1) suffixes.
var sliceSuffix = regexp.MustCompile(`^(disk[0-9]+)(s[0-9]+)*$`)

// SystemBootDisk finds the whole disk mounted at "/" using the partition
// table gopsutil reads from the OS.
func SystemBootDisk() (string, error) {
	parts, err := disk.Partitions(false)
	if err != nil {
		return "", fmt.Errorf("failed to list partitions: %w", err)
	}

	for _, p := range parts {
		if p.Mountpoint == "/" {
			return WholeDisk(p.Device), nil
		}
	}
	return "", nil
}

// WholeDisk reduces a device node such as /dev/disk3s1s1 to disk3. Names
// that do not follow the macOS scheme are returned without the /dev/ prefix.
func WholeDisk(device string) string {
	name := strings.TrimPrefix(device, "/dev/")
	if m := sliceSuffix.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return name
}
