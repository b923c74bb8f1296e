package commands

import (
	"fmt"

	"github.com/macwinusb/winusb/pkg/installer"
	"github.com/macwinusb/winusb/pkg/isoinspect"
	"github.com/macwinusb/winusb/pkg/security"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <image>",
	Short: "Show whether an ISO's install image would be copied or split",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	image := installer.NormalizePath(args[0])
	if err := security.NewValidator(nil).ValidateSourceImage(image); err != nil {
		return err
	}

	preview, err := isoinspect.InspectFile(image, cfg.PayloadPath)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s\n", cfg.PayloadPath, preview)
	return nil
}
