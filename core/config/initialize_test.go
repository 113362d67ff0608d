package config

import (
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitialize(t *testing.T) {
	tempDir := t.TempDir()
	if _, err := Initialize(tempDir, log.New(ioutil.Discard, "", 0)); err != nil {
		t.Fatal(err)
	}

	// Check that the config is valid
	cfg, err := Load(filepath.Join(tempDir, ConfigurationName))
	if err != nil {
		t.Fatal(err)
	}

	t.Run("OpenAppLog", func(t *testing.T) {
		fd, err := cfg.OpenAppLog()
		assert.Nil(t, err)
		fd.Close()
	})

	t.Run("ReadAppLog", func(t *testing.T) {
		fd, err := cfg.ReadAppLog()
		assert.Nil(t, err)
		fd.Close()
	})

	t.Run("keeps existing config", func(t *testing.T) {
		configPath := filepath.Join(tempDir, ConfigurationName)
		assert.NoError(t, os.WriteFile(configPath, []byte("max_jobs: 2\n"), 0600))

		cfg, err := Initialize(tempDir, log.New(ioutil.Discard, "", 0))
		assert.NoError(t, err)
		assert.Equal(t, 2, cfg.MaxJobs)
	})
}
