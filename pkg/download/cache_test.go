package download

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/torchstack/torchlink/pkg/env"
)

func TestEntryKeyRoundtrip(t *testing.T) {
	key := entryKey("2.5.1", "cu124", true)
	require.Equal(t, "libtorch-2.5.1-cu124-cxx11", key)

	ver, variant, cxx11ABI, ok := parseEntryKey(key)
	require.True(t, ok)
	require.Equal(t, "2.5.1", ver)
	require.Equal(t, "cu124", variant)
	require.True(t, cxx11ABI)

	ver, variant, cxx11ABI, ok = parseEntryKey(entryKey("2.0.0", "cpu", false))
	require.True(t, ok)
	require.Equal(t, "2.0.0", ver)
	require.Equal(t, "cpu", variant)
	require.False(t, cxx11ABI)
}

func TestParseEntryKeyRejectsForeignNames(t *testing.T) {
	for _, key := range []string{
		"libtorch-2.5.1-cu124",
		"libtorch-2.5.1-cu124-gnu",
		"libtorch-bogus-cpu-cxx11",
		"tmp-b2f5ff47-1b3b-4f3a-9a6f-0e2b3c4d5e6f",
		"somethingelse",
	} {
		_, _, _, ok := parseEntryKey(key)
		require.False(t, ok, "key %q", key)
	}
}

func seedEntry(t *testing.T, cacheDir string, ver string, variant string, cxx11ABI bool) string {
	t.Helper()
	entryDir := filepath.Join(cacheDir, entryKey(ver, variant, cxx11ABI))
	libDir := filepath.Join(entryDir, "libtorch", "lib")
	require.NoError(t, os.MkdirAll(libDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(libDir, "libtorch.so"), []byte{}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(entryDir, stampName), []byte("test\n"), 0o644))
	return filepath.Join(entryDir, "libtorch")
}

func TestEntries(t *testing.T) {
	cacheDir := t.TempDir()

	seedEntry(t, cacheDir, "2.5.1", "cu124", true)
	seedEntry(t, cacheDir, "2.0.0", "cpu", false)

	// unstamped entries are in-progress downloads and do not count
	unstamped := filepath.Join(cacheDir, entryKey("2.1.2", "cpu", true))
	require.NoError(t, os.MkdirAll(filepath.Join(unstamped, "libtorch"), 0o755))

	// foreign names and stray files are ignored
	require.NoError(t, os.MkdirAll(filepath.Join(cacheDir, "tmp-leftover"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "junk.txt"), []byte("x"), 0o644))

	entries, err := Entries(cacheDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		require.DirExists(t, entry.Dir)
		require.NotZero(t, entry.ModTime)
	}
}

func TestEntriesMissingCacheDir(t *testing.T) {
	entries, err := Entries(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestClean(t *testing.T) {
	cacheDir := t.TempDir()
	seedEntry(t, cacheDir, "2.5.1", "cpu", true)

	require.NoError(t, Clean(cacheDir))

	entries, err := Entries(cacheDir)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.DirExists(t, cacheDir)
}

func TestCacheDirOverride(t *testing.T) {
	dir, err := CacheDir(&env.Environment{CacheDir: "/tmp/torchlink-cache"})
	require.NoError(t, err)
	require.Equal(t, "/tmp/torchlink-cache", dir)

	dir, err = CacheDir(&env.Environment{})
	require.NoError(t, err)
	require.Contains(t, dir, filepath.Join(".cache", "torchlink"))
}
