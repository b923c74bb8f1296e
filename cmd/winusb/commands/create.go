package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/macwinusb/winusb/internal/config"
	"github.com/macwinusb/winusb/pkg/diskutil"
	"github.com/macwinusb/winusb/pkg/errors"
	appfsm "github.com/macwinusb/winusb/pkg/fsm"
	"github.com/macwinusb/winusb/pkg/installer"
	"github.com/macwinusb/winusb/pkg/payload"
	"github.com/macwinusb/winusb/pkg/prompt"
	"github.com/spf13/cobra"
	"github.com/superfly/fsm"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Interactively build an installer drive (default command)",
	Args:  cobra.NoArgs,
	RunE:  runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ui := prompt.NewStdUI()

	tools, err := diskutil.NewToolchain(toolStream(cfg.Verbose))
	if err != nil {
		return errors.Wrap(err, "toolchain init failed")
	}

	deps := installer.Deps{
		Tools:   tools,
		UI:      ui,
		Fetcher: installer.NewS3Fetcher(downloadDir(cfg), cfg.S3Region, cfg.S3Anonymous),
	}

	var res *installer.Result
	if cfg.Journal {
		res, err = runJournaled(ctx, cfg, deps)
	} else {
		res, err = installer.New(pipelineConfig(cfg), deps).Run(ctx)
	}
	if err != nil {
		return err
	}

	report(ui, res)
	return nil
}

// runJournaled records the run in sqlite and drives its stages through the FSM
func runJournaled(ctx context.Context, cfg *config.Config, deps installer.Deps) (*installer.Result, error) {
	// Nothing is written to disk until the environment checks pass.
	if err := installer.New(pipelineConfig(cfg), deps).Preflight(); err != nil {
		return nil, err
	}

	if err := ensureDirectories(cfg.SQLitePath, cfg.FSMDBPath, cfg.WorkDir); err != nil {
		return nil, err
	}

	repo, err := openRepository(cfg)
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	deps.Journal = installer.NewDBJournal(repo)
	pipeline := installer.New(pipelineConfig(cfg), deps)

	manager, err := fsm.New(fsm.Config{DBPath: cfg.FSMDBPath})
	if err != nil {
		return nil, errors.Wrap(err, "FSM manager failed")
	}
	defer manager.Shutdown(10 * time.Second)

	machine := appfsm.NewMachine(pipeline, 1)
	start, _, err := machine.Register(ctx, manager)
	if err != nil {
		return nil, errors.Wrap(err, "FSM register failed")
	}

	in, err := pipeline.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	return machine.Run(ctx, manager, start, in)
}

func report(ui prompt.UI, res *installer.Result) {
	ui.Println()
	for _, w := range res.Warnings {
		ui.Warn("%s", w)
	}

	switch res.Payload.Action {
	case payload.ActionSplit:
		ui.Printf("install.wim was %d MiB and was split into parts at %s\n", res.Payload.Size/1024/1024, res.Payload.Dest)
	case payload.ActionCopy:
		ui.Printf("install.wim (%d MiB) copied to %s\n", res.Payload.Size/1024/1024, res.Payload.Dest)
	}
	ui.Printf("Done. %s is ready to boot a Windows installer.\n", res.Inputs.Device)
}
