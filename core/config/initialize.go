package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
)

// Initialize writes the default configuration to dir unless one already
// exists there, then loads it.
func Initialize(dir string, logger *log.Logger) (*Configuration, error) {
	logger.Printf("Initializing configuration in %q\n", dir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	configPath := filepath.Join(dir, ConfigurationName)
	switch _, err := os.Stat(configPath); {
	case err == nil:
		logger.Printf("- %s already exists, keeping it\n", ConfigurationName)
	case errors.Is(err, fs.ErrNotExist):
		logger.Printf("- writing %s\n", ConfigurationName)
		if err := os.WriteFile(configPath, defaultConfigData, 0600); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	cfg, err := Load(dir)
	if err != nil {
		return nil, err
	}

	logger.Printf("- creating %s\n", AppLogName)
	fd, err := cfg.OpenAppLog()
	if err != nil {
		return nil, err
	}
	if err := fd.Close(); err != nil {
		return nil, err
	}

	logger.Println("Done!")
	return cfg, nil
}
