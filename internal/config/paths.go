package config

import (
	"fmt"
	"os"
	"path/filepath"
)

type Paths struct {
	BaseDir      string
	DBPath       string
	SettingsPath string
}

func ResolvePaths(appSlug string) (Paths, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("resolve user config dir: %w", err)
	}

	return PathsUnder(filepath.Join(configDir, appSlug))
}

// PathsUnder lays out the application files below baseDir, creating it.
func PathsUnder(baseDir string) (Paths, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create app config dir: %w", err)
	}

	return Paths{
		BaseDir:      baseDir,
		DBPath:       filepath.Join(baseDir, "history.db"),
		SettingsPath: filepath.Join(baseDir, "settings.toml"),
	}, nil
}
