package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/macwinusb/winusb/internal/config"
	"github.com/macwinusb/winusb/pkg/db"
	"github.com/macwinusb/winusb/pkg/errors"
	"github.com/macwinusb/winusb/pkg/installer"
)

// loadConfig loads and validates configuration and applies the log level
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config invalid")
	}
	if cfg.Verbose {
		LogLevel.Set(slog.LevelDebug)
	}
	return cfg, nil
}

// pipelineConfig maps application config onto a run
func pipelineConfig(cfg *config.Config) installer.Config {
	return installer.Config{
		Verbose:          cfg.Verbose,
		VolumeLabel:      cfg.VolumeLabel,
		TargetMountPoint: cfg.TargetMountPoint,
		PayloadRelPath:   cfg.PayloadPath,
		PartSizeMiB:      cfg.PartSizeMiB,
	}
}

// toolStream is where external tools write progress
func toolStream(verbose bool) io.Writer {
	if verbose {
		return os.Stdout
	}
	return nil
}

func downloadDir(cfg *config.Config) string {
	return filepath.Join(cfg.WorkDir, "downloads")
}

// openRepository ensures the database directory exists and opens it
func openRepository(cfg *config.Config) (*db.Repository, error) {
	if err := ensureDirectories(cfg.SQLitePath, "", ""); err != nil {
		return nil, err
	}
	repo, err := db.NewRepository(cfg.SQLitePath)
	if err != nil {
		return nil, errors.Wrap(err, "db init failed")
	}
	return repo, nil
}

// ensureDirectories creates all necessary directories for the application
func ensureDirectories(sqlitePath, fsmDBPath, workDir string) error {
	// Create database directory
	if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
		return errors.Wrap(err, "failed to create database directory")
	}

	// Create FSM database directory (only needed for journaled runs)
	if fsmDBPath != "" {
		if err := os.MkdirAll(fsmDBPath, 0755); err != nil {
			return errors.Wrap(err, "failed to create FSM directory")
		}
	}

	if workDir != "" {
		if err := os.MkdirAll(workDir, 0755); err != nil {
			return errors.Wrap(err, "failed to create work directory")
		}
	}

	return nil
}
