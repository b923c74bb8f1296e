package diskutil

import (
	"strings"

	"github.com/macwinusb/winusb/pkg/errors"
)

var (
	// ErrEmptyOutput means the attach tool printed nothing.
	ErrEmptyOutput = errors.New("attach produced no output")
	// ErrMountPointNotFound means no line of the output carried a mount point.
	ErrMountPointNotFound = errors.New("no mount point in attach output")
)

// ParseMountPoint extracts the mount point from `hdiutil attach` output.
//
// Each output line is tab separated:
//
//	<dev-entry>\t<content-hint>\t<mount-point>
//
// The content hint and mount point columns may be blank or space padded.
// The mount point is the last non-blank column of a line when that column
// is an absolute path outside /dev. Mount points may contain spaces. When
// several lines carry one, the last wins, matching the order hdiutil prints
// partitions in.
func ParseMountPoint(output string) (string, error) {
	if strings.TrimSpace(output) == "" {
		return "", ErrEmptyOutput
	}

	var mountPoint string
	for _, line := range strings.Split(output, "\n") {
		cols := strings.Split(strings.TrimRight(line, "\r"), "\t")
		// Column 0 is the device entry; a mount point never comes first.
		for i := len(cols) - 1; i >= 1; i-- {
			col := strings.TrimSpace(cols[i])
			if col == "" {
				continue
			}
			if strings.HasPrefix(col, "/") && !strings.HasPrefix(col, "/dev/") {
				mountPoint = col
			}
			break
		}
	}

	if mountPoint == "" {
		return "", ErrMountPointNotFound
	}
	return mountPoint, nil
}
