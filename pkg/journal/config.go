package journal

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/srand/jolt/node/pkg/log"
	"github.com/srand/jolt/node/pkg/utils"
)

type Config struct {
	// Storage type: "memory", "disk" or empty to disable the journal.
	StorageType string `mapstructure:"storage"`
	// Directory of the journal files (for disk storage).
	Path string `mapstructure:"path"`
	// Size after which the journal file is rotated.
	// Supported suffixes: K, M, G, Ki, Mi, Gi, ...
	MaxSize_ string `mapstructure:"size"`
}

func (c *Config) Enabled() bool {
	return c.StorageType != ""
}

func (c *Config) MaxSize() int64 {
	size, _ := utils.ParseSize(c.MaxSize_)
	return size
}

func (c *Config) Validate() error {
	switch c.StorageType {
	case "", "memory":
	case "disk":
		if c.Path == "" {
			return fmt.Errorf("no path configured for journal disk storage")
		}
	default:
		return fmt.Errorf("invalid journal storage type configured: %s", c.StorageType)
	}

	if c.MaxSize_ != "" {
		if _, err := utils.ParseSize(c.MaxSize_); err != nil {
			return fmt.Errorf("invalid journal size: %w", err)
		}
	}
	return nil
}

func (c *Config) CreateFs() (afero.Fs, error) {
	switch c.StorageType {
	case "disk":
		os := afero.NewOsFs()
		if err := os.MkdirAll(c.Path, 0777); err != nil {
			return nil, err
		}
		return afero.NewBasePathFs(os, c.Path), nil

	case "memory":
		return afero.NewMemMapFs(), nil
	}

	return nil, c.Validate()
}

// Open creates the configured journal, or returns nil if disabled.
func (c *Config) Open(logger *log.Logger) (Journal, error) {
	if !c.Enabled() {
		return nil, nil
	}

	fs, err := c.CreateFs()
	if err != nil {
		return nil, err
	}
	if fs == nil {
		return nil, fmt.Errorf("invalid journal storage type configured: %s", c.StorageType)
	}

	return New(fs, c.MaxSize(), logger)
}

func (c *Config) Log(logger *log.Logger) {
	if !c.Enabled() {
		return
	}
	logger.Info("  Journal configuration:")
	logger.Infof("    storage = %s", c.StorageType)
	if c.StorageType == "disk" {
		logger.Infof("    path = %s", c.Path)
	}
	if size := c.MaxSize(); size > 0 {
		logger.Infof("    size = %s", utils.HumanByteSize(size))
	}
}
