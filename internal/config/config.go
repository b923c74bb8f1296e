package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/macwinusb/winusb/pkg/diskutil"
	"github.com/macwinusb/winusb/pkg/payload"
	"github.com/macwinusb/winusb/pkg/security"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Output
	Verbose bool `mapstructure:"verbose"`

	// State paths
	WorkDir    string `mapstructure:"work-dir"`
	SQLitePath string `mapstructure:"sqlite-path"`
	FSMDBPath  string `mapstructure:"fsm-db-path"`

	// Journal records runs in sqlite and drives them through the FSM
	Journal bool `mapstructure:"journal"`

	// Target volume
	VolumeLabel      string `mapstructure:"volume-label"`
	TargetMountPoint string `mapstructure:"target-mount-point"`

	// Payload handling
	PayloadPath string `mapstructure:"payload-path"`
	PartSizeMiB int    `mapstructure:"part-size-mib"`

	// S3 sources
	S3Region    string `mapstructure:"s3-region"`
	S3Anonymous bool   `mapstructure:"s3-anonymous"`
}

// StateDir is where run state lives unless overridden
func StateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".winusb"
	}
	return filepath.Join(home, ".winusb")
}

// Load reads configuration from environment, config file, and defaults
func Load() (*Config, error) {
	return load(viper.GetViper())
}

func load(v *viper.Viper) (*Config, error) {
	state := StateDir()

	v.SetDefault("verbose", false)
	v.SetDefault("work-dir", filepath.Join(state, "work"))
	v.SetDefault("sqlite-path", filepath.Join(state, "runs.db"))
	v.SetDefault("fsm-db-path", filepath.Join(state, "fsm"))
	v.SetDefault("journal", true)
	v.SetDefault("volume-label", diskutil.DefaultVolumeLabel)
	v.SetDefault("target-mount-point", "")
	v.SetDefault("payload-path", payload.DefaultRelPath)
	v.SetDefault("part-size-mib", payload.DefaultPartSizeMiB)
	v.SetDefault("s3-region", "us-east-1")
	v.SetDefault("s3-anonymous", false)

	// Environment variables (will be WINUSB_VOLUME_LABEL, etc.)
	v.SetEnvPrefix("WINUSB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.winusb")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	validator := security.NewValidator(nil)

	if err := validator.ValidateVolumeLabel(c.VolumeLabel); err != nil {
		return err
	}
	if err := validator.ValidatePath(c.PayloadPath); err != nil {
		return fmt.Errorf("payload-path: %w", err)
	}
	if c.PartSizeMiB <= 0 || c.PartSizeMiB > payload.DefaultPartSizeMiB {
		return fmt.Errorf("part-size-mib must be between 1 and %d", payload.DefaultPartSizeMiB)
	}
	if c.TargetMountPoint != "" && !filepath.IsAbs(c.TargetMountPoint) {
		return fmt.Errorf("target-mount-point must be absolute")
	}
	if c.Journal {
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite-path cannot be empty")
		}
		if c.FSMDBPath == "" {
			return fmt.Errorf("fsm-db-path cannot be empty")
		}
	}
	if c.WorkDir == "" {
		return fmt.Errorf("work-dir cannot be empty")
	}
	return nil
}
