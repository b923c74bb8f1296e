package commands

import (
	"context"
	"fmt"

	"github.com/macwinusb/winusb/pkg/db"
	"github.com/macwinusb/winusb/pkg/diskutil"
	"github.com/macwinusb/winusb/pkg/errors"
	"github.com/macwinusb/winusb/pkg/installer"
	"github.com/spf13/cobra"
)

var (
	cleanupRun    string
	cleanupStale  bool
	cleanupForget bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Detach images left attached by interrupted runs",
	Long: `Clean up resources left by runs that did not finish:
  --run <run-key>   Clean up one run
  --stale           Clean up every run that may still hold an attached image
  --forget          Also delete the cleaned runs from the history`,
	Args: cobra.NoArgs,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().StringVar(&cleanupRun, "run", "", "Clean up a specific run by key")
	cleanupCmd.Flags().BoolVar(&cleanupStale, "stale", false, "Clean up all runs holding an attached image")
	cleanupCmd.Flags().BoolVar(&cleanupForget, "forget", false, "Delete cleaned runs from the history")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	if cleanupRun == "" && !cleanupStale {
		return fmt.Errorf("must specify --run or --stale")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	tools, err := diskutil.NewToolchain(nil)
	if err != nil {
		return errors.Wrap(err, "toolchain init failed")
	}

	r := &installer.Reclaimer{Tools: tools, Repo: repo, Downloads: downloadDir(cfg)}
	ctx := cmd.Context()

	if cleanupRun != "" {
		run, err := repo.GetByRunKey(cleanupRun)
		if err != nil {
			return errors.Wrap(err, "lookup failed")
		}
		if run == nil {
			return fmt.Errorf("run %s not found", cleanupRun)
		}
		return reclaim(ctx, r, repo, run)
	}

	runs, err := repo.ListHoldingMounts()
	if err != nil {
		return errors.Wrap(err, "list failed")
	}
	fmt.Printf("Cleaning up %d runs...\n", len(runs))

	failed := 0
	for _, run := range runs {
		if err := reclaim(ctx, r, repo, run); err != nil {
			fmt.Printf("WARNING: failed to clean %s: %v\n", run.RunKey, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d runs could not be cleaned", failed, len(runs))
	}
	return nil
}

func reclaim(ctx context.Context, r *installer.Reclaimer, repo *db.Repository, run *db.Run) error {
	if err := r.Reclaim(ctx, run); err != nil {
		return err
	}
	if cleanupForget {
		if err := repo.Delete(run.ID); err != nil {
			return errors.Wrap(err, "failed to forget run")
		}
	}
	fmt.Printf("Cleaned: %s\n", run.RunKey)
	return nil
}
