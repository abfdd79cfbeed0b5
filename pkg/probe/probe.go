package probe

import (
	"context"
	"path/filepath"

	"github.com/torchstack/torchlink/pkg/compat"
	"github.com/torchstack/torchlink/pkg/download"
	"github.com/torchstack/torchlink/pkg/env"
	"github.com/torchstack/torchlink/pkg/errors"
	"github.com/torchstack/torchlink/pkg/library"
	"github.com/torchstack/torchlink/pkg/util/version"
)

// Resolve finds the installation a build should link against. When no
// installed candidate satisfies the request it falls back to
// downloading a prebuilt archive, unless downloads are disabled.
func Resolve(ctx context.Context, environment *env.Environment, req Request) (*library.Library, error) {
	if req.Version != "" {
		if _, err := version.NewVersion(req.Version); err != nil {
			return nil, errors.Configf("Invalid version pin %q: %s", req.Version, err)
		}
	}

	cacheDir, err := download.CacheDir(environment)
	if err != nil {
		return nil, err
	}

	candidates, err := Candidates(ctx, environment, cacheDir)
	if err != nil {
		return nil, err
	}

	chosen, err := Select(candidates, req)
	if errors.IsNotFound(err) && !environment.NoDownload {
		chosen, err = downloadCandidate(ctx, environment, req, cacheDir)
	}
	if err != nil {
		return nil, err
	}
	return toLibrary(chosen, environment), nil
}

// downloadCandidate fetches the build the request asks for, filling
// unpinned fields with defaults: the newest known version, the CPU
// variant and the modern C++11 ABI.
func downloadCandidate(ctx context.Context, environment *env.Environment, req Request, cacheDir string) (*Candidate, error) {
	ver := req.Version
	if ver == "" {
		ver = compat.DefaultVersion()
	} else if release, ok := compat.ReleaseFor(ver); ok {
		ver = release.Libtorch
	}

	variant := req.Variant
	if variant == "" {
		variant = environment.CUDAVersion
	}
	if variant == "" {
		variant = "cpu"
	}

	cxx11ABI := true
	if req.CXX11ABI != nil {
		cxx11ABI = *req.CXX11ABI
	}

	rootDir, err := download.Libtorch(ctx, download.Options{
		Version:  ver,
		Variant:  variant,
		CXX11ABI: cxx11ABI,
		CacheDir: cacheDir,
		Mirror:   environment.Mirror,
	})
	if err != nil {
		return nil, err
	}
	return &Candidate{
		Source:   SourceDownload,
		RootDir:  rootDir,
		Version:  ver,
		Variant:  variant,
		LibDir:   filepath.Join(rootDir, "lib"),
		CXX11ABI: &cxx11ABI,
	}, nil
}

func toLibrary(candidate *Candidate, environment *env.Environment) *library.Library {
	accel := DetectAccelerator(candidate.LibDir, environment)
	includeDirs := candidate.IncludeDirs
	if len(includeDirs) == 0 {
		includeDirs = library.BaseIncludeDirs(candidate.RootDir, accel.Kind == library.APIROCm)
	}
	return &library.Library{
		RootDir:     candidate.RootDir,
		Version:     candidate.versionString(),
		IncludeDirs: includeDirs,
		LibDir:      candidate.LibDir,
		Accel:       accel,
		CXX11ABI:    resolveABI(candidate, environment),
	}
}

func (c *Candidate) versionString() string {
	if c.Version == "" {
		return ""
	}
	if c.Variant == "" {
		return c.Version
	}
	return c.Version + "+" + c.Variant
}

// resolveABI decides the _GLIBCXX_USE_CXX11_ABI setting. An explicit
// LIBTORCH_CXX11_ABI wins over what the candidate reports, and the
// default is the modern ABI.
func resolveABI(candidate *Candidate, environment *env.Environment) bool {
	if environment.CXX11ABI != nil {
		return *environment.CXX11ABI
	}
	if candidate.CXX11ABI != nil {
		return *candidate.CXX11ABI
	}
	return true
}
