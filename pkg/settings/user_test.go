package settings

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/require"
)

func fakeHome(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("home override under test is the unix one")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })
	return home
}

func TestLoadUserSettingsMissingFile(t *testing.T) {
	fakeHome(t)

	settings, err := LoadUserSettings()
	require.NoError(t, err)
	require.Empty(t, settings.DefaultVariant)
	require.Empty(t, settings.CacheDir)
	require.Empty(t, settings.Mirror)
}

func TestUserSettingsRoundtrip(t *testing.T) {
	home := fakeHome(t)

	settings := &UserSettings{
		DefaultVariant: "cu118",
		CacheDir:       "/var/cache/torchlink",
	}
	require.NoError(t, settings.Save())

	path := filepath.Join(home, ".config", "torchlink", "settings.json")
	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := LoadUserSettings()
	require.NoError(t, err)
	require.Equal(t, settings, loaded)
}

func TestLoadUserSettingsGarbage(t *testing.T) {
	home := fakeHome(t)
	dir := filepath.Join(home, ".config", "torchlink")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte("{nope"), 0o600))

	_, err := LoadUserSettings()
	require.Error(t, err)
}
