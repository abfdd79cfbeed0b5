package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/torchstack/torchlink/pkg/errors"
)

func writeSource(t *testing.T, root string, rel string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("// stub\n"), 0o644))
	return path
}

func TestExpandSources(t *testing.T) {
	root := t.TempDir()
	ops := writeSource(t, root, "csrc/ops.cpp")
	nms := writeSource(t, root, "csrc/nms.cpp")
	writeSource(t, root, "csrc/cuda/nms.cu")

	config := &Config{Sources: []string{"csrc/*.cpp"}}
	sources, err := config.ExpandSources(root)
	require.NoError(t, err)
	require.Equal(t, []string{nms, ops}, sources)
}

func TestExpandSourcesDeduplicates(t *testing.T) {
	root := t.TempDir()
	ops := writeSource(t, root, "csrc/ops.cpp")

	config := &Config{Sources: []string{"csrc/*.cpp", "csrc/ops.cpp"}}
	sources, err := config.ExpandSources(root)
	require.NoError(t, err)
	require.Equal(t, []string{ops}, sources)
}

func TestExpandSourcesHonorsIgnoreFile(t *testing.T) {
	root := t.TempDir()
	ops := writeSource(t, root, "csrc/ops.cpp")
	writeSource(t, root, "csrc/ops_test.cpp")
	require.NoError(t, os.WriteFile(filepath.Join(root, IgnoreFilename), []byte("*_test.cpp\n"), 0o644))

	config := &Config{Sources: []string{"csrc/*.cpp"}}
	sources, err := config.ExpandSources(root)
	require.NoError(t, err)
	require.Equal(t, []string{ops}, sources)
}

func TestExpandSourcesNoMatch(t *testing.T) {
	config := &Config{Sources: []string{"csrc/*.cpp"}}
	_, err := config.ExpandSources(t.TempDir())
	require.Error(t, err)
	require.True(t, errors.IsConfig(err))
	require.Contains(t, err.Error(), "csrc/*.cpp")
}

func TestExpandCUDASources(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "csrc/ops.cpp")
	kernel := writeSource(t, root, "csrc/cuda/nms.cu")

	config := &Config{CUDASources: []string{"csrc/cuda/*.cu"}}
	sources, err := config.ExpandCUDASources(root)
	require.NoError(t, err)
	require.Equal(t, []string{kernel}, sources)
}
