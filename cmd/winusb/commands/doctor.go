package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/macwinusb/winusb/pkg/diskutil"
	"github.com/macwinusb/winusb/pkg/security"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the platform and required tools",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	fmt.Printf("platform:  %s/%s (supported: %v)\n", runtime.GOOS, runtime.GOARCH, diskutil.SupportedPlatform())

	missing := diskutil.MissingTools(diskutil.RequiredTools, nil)
	if len(missing) == 0 {
		fmt.Printf("tools:     %s\n", strings.Join(diskutil.RequiredTools, ", "))
	} else {
		fmt.Printf("missing:   %s\n", strings.Join(missing, ", "))
	}

	if boot, err := security.SystemBootDisk(); err == nil && boot != "" {
		fmt.Printf("boot disk: %s (refused as a target)\n", boot)
	}

	return diskutil.CheckPrerequisites(nil)
}
