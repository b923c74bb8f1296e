package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/macwinusb/winusb/internal/config"
	"github.com/macwinusb/winusb/pkg/diskutil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LogLevel is raised to debug by --verbose.
var LogLevel = func() *slog.LevelVar {
	v := new(slog.LevelVar)
	v.Set(slog.LevelWarn)
	return v
}()

var rootCmd = &cobra.Command{
	Use:   "winusb",
	Short: "Build a bootable Windows installer USB drive on macOS",
	Long: `Builds a bootable Windows installer drive from a Windows ISO.

The target disk is erased as FAT32 with an MBR partition table, the ISO
contents are copied onto it, and an install.wim too large for FAT32 is
split into 4000 MiB parts. Every answer is asked for interactively and the
erase is confirmed twice.`,
	SilenceUsage: true,
	RunE:         runCreate,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	state := config.StateDir()

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Show diagnostic output and tool progress")
	rootCmd.PersistentFlags().String("work-dir", filepath.Join(state, "work"), "Directory for downloaded images")
	rootCmd.PersistentFlags().String("sqlite-path", filepath.Join(state, "runs.db"), "SQLite run history path")
	rootCmd.PersistentFlags().String("fsm-db-path", filepath.Join(state, "fsm"), "FSM BoltDB path")
	rootCmd.PersistentFlags().Bool("journal", true, "Record runs in the history database")
	rootCmd.PersistentFlags().String("volume-label", diskutil.DefaultVolumeLabel, "Label for the formatted drive")
	rootCmd.PersistentFlags().String("s3-region", "us-east-1", "S3 region for s3:// images")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("work-dir", rootCmd.PersistentFlags().Lookup("work-dir"))
	viper.BindPFlag("sqlite-path", rootCmd.PersistentFlags().Lookup("sqlite-path"))
	viper.BindPFlag("fsm-db-path", rootCmd.PersistentFlags().Lookup("fsm-db-path"))
	viper.BindPFlag("journal", rootCmd.PersistentFlags().Lookup("journal"))
	viper.BindPFlag("volume-label", rootCmd.PersistentFlags().Lookup("volume-label"))
	viper.BindPFlag("s3-region", rootCmd.PersistentFlags().Lookup("s3-region"))
}
