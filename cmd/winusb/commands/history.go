package commands

import (
	"fmt"

	"github.com/macwinusb/winusb/pkg/errors"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs and their status",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	runs, err := repo.List()
	if err != nil {
		return errors.Wrap(err, "list failed")
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	fmt.Printf("%-36s %-20s %-8s %-14s %-8s %s\n", "RUN", "CREATED", "DEVICE", "STATUS", "PAYLOAD", "SOURCE")
	fmt.Println("------------------------------------------------------------------------------------------------------------")

	for _, run := range runs {
		payloadAction := run.PayloadAction
		if payloadAction == "" {
			payloadAction = "-"
		}
		status := run.Status
		if run.HoldsMount() {
			status += "*"
		}

		fmt.Printf("%-36s %-20s %-8s %-14s %-8s %s\n",
			run.RunKey, run.CreatedAt, run.Device, status, payloadAction, run.SourceImage)
		if run.ErrorMessage != "" {
			fmt.Printf("    error: %s\n", run.ErrorMessage)
		}
	}
	fmt.Println("\n* image may still be attached; run `winusb cleanup --stale`")

	return nil
}
