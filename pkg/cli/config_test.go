package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserConfig_ActiveProfile(t *testing.T) {
	cfg := &UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {Host: "https://dev.cloud.databricks.com", SpaceID: "s-dev"},
			"staging": {Host: "https://staging.cloud.databricks.com", SpaceID: "s-stg"},
		},
	}

	assert.Equal(t, "s-dev", cfg.ActiveProfile("").SpaceID)
	assert.Equal(t, "s-stg", cfg.ActiveProfile("staging").SpaceID)
	assert.Equal(t, Profile{}, cfg.ActiveProfile("nonexistent"))
}

func TestSaveAndLoadUserConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := &UserConfig{
		CurrentProfile: "prod",
		Profiles: map[string]Profile{
			"prod": {
				Host:        "https://prod.cloud.databricks.com",
				Token:       "dapi-secret",
				SpaceID:     "space-1",
				Catalog:     "main",
				Schema:      "genie",
				WarehouseID: "wh-1",
			},
		},
	}
	require.NoError(t, SaveUserConfig(cfg))

	info, err := os.Stat(ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadUserConfig_Missing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := LoadUserConfig()
	require.Error(t, err)
}

func TestConfigPath_UnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	assert.Equal(t, filepath.Join(home, ".genie-copilot", "config.yaml"), ConfigPath())
}
