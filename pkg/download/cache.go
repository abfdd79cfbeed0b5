package download

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"

	"github.com/torchstack/torchlink/pkg/env"
	"github.com/torchstack/torchlink/pkg/util/version"
)

// stampName marks a cache entry as completely downloaded and
// extracted. Entries without it are treated as garbage.
const stampName = ".torchlink-ok"

const (
	abiTagCXX11    = "cxx11"
	abiTagPreCXX11 = "precxx11"
)

// CacheDir returns the directory archives are extracted into,
// honoring TORCHLINK_CACHE_DIR.
func CacheDir(environment *env.Environment) (string, error) {
	if environment != nil && environment.CacheDir != "" {
		return homedir.Expand(environment.CacheDir)
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("Failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".cache", "torchlink"), nil
}

// Entry is one extracted libtorch build in the cache.
type Entry struct {
	// Dir is the usable installation root, the libtorch/ tree inside
	// the entry.
	Dir      string
	Version  string
	Variant  string
	CXX11ABI bool
	Size     int64
	ModTime  time.Time
}

func entryKey(ver string, variant string, cxx11ABI bool) string {
	tag := abiTagPreCXX11
	if cxx11ABI {
		tag = abiTagCXX11
	}
	return fmt.Sprintf("libtorch-%s-%s-%s", ver, variant, tag)
}

func parseEntryKey(key string) (ver string, variant string, cxx11ABI bool, ok bool) {
	rest, found := strings.CutPrefix(key, "libtorch-")
	if !found {
		return "", "", false, false
	}
	parts := strings.Split(rest, "-")
	if len(parts) != 3 {
		return "", "", false, false
	}
	if _, err := version.NewVersion(parts[0]); err != nil {
		return "", "", false, false
	}
	switch parts[2] {
	case abiTagCXX11:
		cxx11ABI = true
	case abiTagPreCXX11:
		cxx11ABI = false
	default:
		return "", "", false, false
	}
	return parts[0], parts[1], cxx11ABI, true
}

// Entries lists the complete builds in the cache, ignoring anything
// half-downloaded or foreign. A missing cache directory is an empty
// cache.
func Entries(cacheDir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(cacheDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Failed to read cache directory %s: %w", cacheDir, err)
	}

	var entries []Entry
	for _, dirEntry := range dirEntries {
		if !dirEntry.IsDir() {
			continue
		}
		ver, variant, cxx11ABI, ok := parseEntryKey(dirEntry.Name())
		if !ok {
			continue
		}
		entryDir := filepath.Join(cacheDir, dirEntry.Name())
		stamp, err := os.Stat(filepath.Join(entryDir, stampName))
		if err != nil {
			continue
		}
		rootDir := filepath.Join(entryDir, "libtorch")
		if !isDir(rootDir) {
			continue
		}
		entries = append(entries, Entry{
			Dir:      rootDir,
			Version:  ver,
			Variant:  variant,
			CXX11ABI: cxx11ABI,
			Size:     dirSize(entryDir),
			ModTime:  stamp.ModTime(),
		})
	}
	return entries, nil
}

// Clean removes every cache entry. The cache directory itself is kept.
func Clean(cacheDir string) error {
	entries, err := os.ReadDir(cacheDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("Failed to read cache directory %s: %w", cacheDir, err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(cacheDir, entry.Name())); err != nil {
			return fmt.Errorf("Failed to remove %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func dirSize(dir string) int64 {
	var size int64
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if info, err := d.Info(); err == nil && info.Mode().IsRegular() {
			size += info.Size()
		}
		return nil
	})
	return size
}
