// Package probe locates usable libtorch installations and picks the
// one a build should link against.
package probe

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/torchstack/torchlink/pkg/download"
	"github.com/torchstack/torchlink/pkg/env"
	"github.com/torchstack/torchlink/pkg/errors"
	"github.com/torchstack/torchlink/pkg/util/console"
	"github.com/torchstack/torchlink/pkg/util/version"
)

// Source identifies where a candidate installation came from.
type Source int

const (
	// SourceOverride is an explicit LIBTORCH directory.
	SourceOverride Source = iota
	// SourceSystem is a distribution-installed libtorch under /usr.
	SourceSystem
	// SourcePyTorch is the libtorch inside an installed PyTorch
	// python package.
	SourcePyTorch
	// SourceCache is a previously downloaded build.
	SourceCache
	// SourceDownload is a build fetched during this invocation.
	SourceDownload
)

var sourceNames = [...]string{
	SourceOverride: "LIBTORCH",
	SourceSystem:   "the system installation",
	SourcePyTorch:  "PyTorch",
	SourceCache:    "the download cache",
	SourceDownload: "download",
}

func (s Source) String() string {
	return sourceNames[s]
}

// Candidate is one installation the probe found. Version, Variant and
// CXX11ABI are filled in only where the source reveals them.
type Candidate struct {
	Source  Source
	RootDir string

	// Version is the base version without the variant suffix, "" when
	// the installation carries no version marker.
	Version string
	// Variant is the build variant ("cpu", "cu118"), "" when unknown.
	Variant string

	// IncludeDirs is set for PyTorch candidates, which report their
	// header directories directly. Other sources use the standard
	// layout under RootDir.
	IncludeDirs []string
	LibDir      string

	// CXX11ABI is non-nil when the source knows which ABI the build
	// uses.
	CXX11ABI *bool
}

const systemLibtorchSO = "/usr/lib/libtorch.so"

// Candidates gathers every installation that could serve the build,
// in probe order: the LIBTORCH override, the system installation, an
// installed PyTorch package when requested, then the download cache.
func Candidates(ctx context.Context, environment *env.Environment, cacheDir string) ([]Candidate, error) {
	var candidates []Candidate

	if dir := environment.LibtorchDir; dir != "" {
		ver, variant := readBuildVersion(dir)
		console.Debugf("Found libtorch via %s at %s", SourceOverride, dir)
		candidates = append(candidates, Candidate{
			Source:  SourceOverride,
			RootDir: dir,
			Version: ver,
			Variant: variant,
			LibDir:  filepath.Join(dir, "lib"),
		})
	}

	if runtime.GOOS == "linux" {
		if _, err := os.Stat(systemLibtorchSO); err == nil {
			console.Debugf("Found libtorch via %s at /usr", SourceSystem)
			candidates = append(candidates, Candidate{
				Source:  SourceSystem,
				RootDir: "/usr",
				LibDir:  "/usr/lib",
			})
		}
	}

	if environment.UsePyTorch {
		candidate, err := probePyTorch(ctx)
		if err != nil {
			return nil, errors.NotFoundf("%s is set, but probing PyTorch failed: %s", env.UsePyTorchEnvVarName, err)
		}
		console.Debugf("Found libtorch via %s at %s", SourcePyTorch, candidate.LibDir)
		candidates = append(candidates, *candidate)
	}

	entries, err := download.Entries(cacheDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		console.Debugf("Found %d cached builds in %s", len(entries), cacheDir)
	}
	for _, entry := range entries {
		cxx11ABI := entry.CXX11ABI
		candidates = append(candidates, Candidate{
			Source:   SourceCache,
			RootDir:  entry.Dir,
			Version:  entry.Version,
			Variant:  entry.Variant,
			LibDir:   filepath.Join(entry.Dir, "lib"),
			CXX11ABI: &cxx11ABI,
		})
	}

	return candidates, nil
}

// readBuildVersion reads the build-version marker a prebuilt archive
// ships at its root, e.g. "2.0.1+cu118". Installations without the
// marker report no version.
func readBuildVersion(rootDir string) (ver string, variant string) {
	raw, err := os.ReadFile(filepath.Join(rootDir, "build-version"))
	if err != nil {
		return "", ""
	}
	parsed, err := version.NewVersion(strings.TrimSpace(string(raw)))
	if err != nil {
		return "", ""
	}
	return parsed.Base(), parsed.Variant()
}
