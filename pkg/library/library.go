// Package library describes a usable libtorch installation and derives the
// include paths, link paths and library names a compiler invocation needs.
package library

import (
	"path/filepath"
	"runtime"

	"github.com/torchstack/torchlink/pkg/errors"
	"github.com/torchstack/torchlink/pkg/util/files"
)

// APIKind enumerates the accelerator interface a libtorch build ships with.
type APIKind int

const (
	APINone APIKind = iota
	APICUDA
	// APICUDASplit is the CUDA interface split over libtorch_cuda_cu and
	// libtorch_cuda_cpp, used by some larger builds.
	APICUDASplit
	APIROCm
)

var apiNames = [...]string{
	APINone:      "none",
	APICUDA:      "cuda",
	APICUDASplit: "cuda-split",
	APIROCm:      "rocm",
}

func (k APIKind) String() string {
	return apiNames[k]
}

// Accelerator carries the detected accelerator interface and the toolkit
// locations it depends on. The zero value means no accelerator.
type Accelerator struct {
	Kind APIKind

	// CUDAHome and CUDNNHome are set for APICUDA and APICUDASplit.
	// CUDNNHome may be empty when cuDNN was not located.
	CUDAHome  string
	CUDNNHome string

	// ROCmHome and MIOpenHome are set for APIROCm.
	ROCmHome   string
	MIOpenHome string
}

// Available reports whether the installation exposes any accelerator API.
func (a Accelerator) Available() bool {
	return a.Kind != APINone
}

// Library is the resolved installation descriptor the assembly stages consume.
type Library struct {
	// RootDir is the installation root. Empty for installations probed out of
	// a PyTorch python package, which report their directories directly.
	RootDir string

	// Version is the installation's version string when known, including the
	// variant suffix ("2.0.0+cu118"). Empty when the install carries no
	// version marker.
	Version string

	IncludeDirs []string
	LibDir      string
	Accel       Accelerator

	// CXX11ABI is the _GLIBCXX_USE_CXX11_ABI setting the installation was
	// compiled with.
	CXX11ABI bool
}

// CUDAAvailable reports whether flag assembly may enable the CUDA API.
func (l *Library) CUDAAvailable() bool {
	return l.Accel.Available()
}

// IncludePaths returns the include directories for a compile against this
// installation. /usr/include is filtered on Linux so system headers keep their
// default priority. Requesting CUDA on a CPU-only installation is an error.
func (l *Library) IncludePaths(useCUDA bool) ([]string, error) {
	paths := append([]string{}, l.IncludeDirs...)

	if useCUDA {
		switch l.Accel.Kind {
		case APINone:
			return nil, errors.Config("CUDA API requested but this libtorch build has no accelerator support")
		case APIROCm:
			paths = append(paths,
				filepath.Join(l.Accel.ROCmHome, "include"),
				filepath.Join(l.Accel.MIOpenHome, "include"),
			)
		case APICUDA, APICUDASplit:
			paths = append(paths, filepath.Join(l.Accel.CUDAHome, "include"))
			if l.Accel.CUDNNHome != "" {
				paths = append(paths, filepath.Join(l.Accel.CUDNNHome, "include"))
			}
		}
	}

	if runtime.GOOS == "linux" {
		filtered := paths[:0]
		for _, p := range paths {
			if p != "/usr/include" {
				filtered = append(filtered, p)
			}
		}
		paths = filtered
	}

	return paths, nil
}

// LinkPaths returns the library search directories, the installation's lib
// directory first. CUDA and cuDNN contribute lib64 when it exists, falling
// back to lib.
func (l *Library) LinkPaths(useCUDA bool) ([]string, error) {
	paths := []string{l.LibDir}

	if !useCUDA {
		return paths, nil
	}

	switch l.Accel.Kind {
	case APINone:
		return nil, errors.Config("CUDA API requested but this libtorch build has no accelerator support")
	case APIROCm:
		paths = append(paths, filepath.Join(l.Accel.ROCmHome, "lib"))
	case APICUDA, APICUDASplit:
		if runtime.GOOS == "windows" {
			paths = append(paths, filepath.Join(l.Accel.CUDAHome, "lib", "x64"))
			break
		}
		cudaLibDir, err := lib64OrLib(l.Accel.CUDAHome)
		if err != nil {
			return nil, err
		}
		paths = append(paths, cudaLibDir)
		if l.Accel.CUDNNHome != "" {
			cudnnLibDir, err := lib64OrLib(l.Accel.CUDNNHome)
			if err != nil {
				return nil, err
			}
			paths = append(paths, cudnnLibDir)
		}
	}

	return paths, nil
}

// Libraries returns the library names to link, base libraries first, then
// python bindings, then the accelerator set, then gomp on platforms that ship
// libtorch with OpenMP.
func (l *Library) Libraries(useCUDA bool, linkPython bool) ([]string, error) {
	libs := []string{"c10", "torch_cpu", "torch"}
	if linkPython {
		libs = append(libs, "torch_python")
	}

	if useCUDA {
		switch l.Accel.Kind {
		case APINone:
			return nil, errors.Config("CUDA API requested but this libtorch build has no accelerator support")
		case APIROCm:
			libs = append(libs, "amdhip64", "c10_hip", "torch_hip")
		case APICUDA:
			libs = append(libs, "cudart", "c10_cuda", "torch_cuda")
		case APICUDASplit:
			libs = append(libs, "cudart", "c10_cuda", "torch_cuda_cu", "torch_cuda_cpp")
		}
	}

	if runtime.GOOS != "darwin" && runtime.GOOS != "windows" {
		libs = append(libs, "gomp")
	}

	return libs, nil
}

func lib64OrLib(home string) (string, error) {
	lib64 := filepath.Join(home, "lib64")
	if exists, err := files.Exists(lib64); err != nil {
		return "", err
	} else if exists {
		return lib64, nil
	}
	lib := filepath.Join(home, "lib")
	if exists, err := files.Exists(lib); err != nil {
		return "", err
	} else if exists {
		return lib, nil
	}
	return "", errors.Configf("no lib64 or lib directory under %s", home)
}

// BaseIncludeDirs lists the header directories a conventional libtorch
// distribution places under its root. rocm adds a thh directory.
func BaseIncludeDirs(rootDir string, rocm bool) []string {
	base := filepath.Join(rootDir, "include")
	dirs := []string{
		base,
		filepath.Join(base, "torch", "csrc", "api", "include"),
		filepath.Join(base, "TH"),
		filepath.Join(base, "THC"),
	}
	if rocm {
		dirs = append(dirs, filepath.Join(base, "thh"))
	}
	return dirs
}
