package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/macwinusb/winusb/internal/config"
	"github.com/macwinusb/winusb/pkg/errors"
	"github.com/macwinusb/winusb/pkg/installer"
	"github.com/macwinusb/winusb/pkg/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunJournaled_PreflightFailureWritesNothing(t *testing.T) {
	state := filepath.Join(t.TempDir(), ".winusb")
	cfg := &config.Config{
		WorkDir:     filepath.Join(state, "work"),
		SQLitePath:  filepath.Join(state, "db", "runs.db"),
		FSMDBPath:   filepath.Join(state, "fsm"),
		Journal:     true,
		VolumeLabel: "WININSTALL",
		PayloadPath: "sources/install.wim",
		PartSizeMiB: 4000,
	}

	ui := prompt.NewScripted()
	deps := installer.Deps{
		UI:        ui,
		Preflight: func() error { return fmt.Errorf("hdiutil not found in PATH") },
	}

	res, err := runJournaled(context.Background(), cfg, deps)
	require.Error(t, err)
	assert.Nil(t, res)

	assert.Equal(t, errors.KindEnvironment, errors.KindOf(err))
	assert.Equal(t, installer.StagePreflight, errors.StageOf(err))
	assert.Empty(t, ui.Asked)
	assert.NoDirExists(t, state)
}
