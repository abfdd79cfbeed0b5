package settings

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"

	"github.com/torchstack/torchlink/pkg/util/console"
	"github.com/torchstack/torchlink/pkg/util/files"
)

// UserSettings are preferences that span projects: which variant to
// download when a project doesn't pin one, where the cache lives, and
// an optional archive mirror. Environment variables take precedence
// over all of these.
type UserSettings struct {
	DefaultVariant string `json:"default_variant,omitempty"`
	CacheDir       string `json:"cache_dir,omitempty"`
	Mirror         string `json:"mirror,omitempty"`
}

// LoadUserSettings loads the global user settings from disk, returning
// the zero settings if no file exists.
func LoadUserSettings() (*UserSettings, error) {
	settings := UserSettings{}

	settingsPath, err := userSettingsPath()
	if err != nil {
		return nil, err
	}

	exists, err := files.Exists(settingsPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return &settings, nil
	}
	text, err := os.ReadFile(settingsPath)
	if err != nil {
		console.Warnf("Failed to read %s: %s", settingsPath, err)
		return &settings, nil
	}

	err = json.Unmarshal(text, &settings)
	if err != nil {
		return nil, err
	}

	return &settings, nil
}

// Save saves global user settings to disk
func (s *UserSettings) Save() error {
	settingsPath, err := userSettingsPath()
	if err != nil {
		return err
	}

	bytes, err := json.MarshalIndent(s, "", " ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(settingsPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	err = os.WriteFile(settingsPath, bytes, 0600)
	if err != nil {
		return err
	}
	return nil
}

func UserSettingsDir() (string, error) {
	return homedir.Expand("~/.config/torchlink")
}

func userSettingsPath() (string, error) {
	dir, err := UserSettingsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.json"), nil
}
