// Package env reads the process environment into an explicit Environment
// struct. Nothing else in the codebase touches os.Getenv for libtorch
// configuration, so a caller can construct an Environment literally and get
// fully deterministic behavior out of the probe and the emitter.
package env

import (
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/torchstack/torchlink/pkg/errors"
)

const (
	LibtorchEnvVarName           = "LIBTORCH"
	UsePyTorchEnvVarName         = "LIBTORCH_USE_PYTORCH"
	CXX11ABIEnvVarName           = "LIBTORCH_CXX11_ABI"
	BypassVersionCheckEnvVarName = "LIBTORCH_BYPASS_VERSION_CHECK"
	CUDAVersionEnvVarName        = "TORCH_CUDA_VERSION"
	CUDAArchListEnvVarName       = "TORCH_CUDA_ARCH_LIST"
	CUDAHomeEnvVarName           = "CUDA_HOME"
	CUDAPathEnvVarName           = "CUDA_PATH"
	CUDNNHomeEnvVarName          = "CUDNN_HOME"
	CUDNNPathEnvVarName          = "CUDNN_PATH"
	ROCmHomeEnvVarName           = "ROCM_HOME"
	ROCmPathEnvVarName           = "ROCM_PATH"
	CacheDirEnvVarName           = "TORCHLINK_CACHE_DIR"
	NoDownloadEnvVarName         = "TORCHLINK_NO_DOWNLOAD"
	MirrorEnvVarName             = "TORCHLINK_MIRROR"
)

// Environment carries every environment input the pipeline consults. The zero
// value means "nothing requested": auto-detect everything.
type Environment struct {
	// LibtorchDir is an explicit libtorch installation root (LIBTORCH). When
	// set it wins over every auto-detected candidate.
	LibtorchDir string

	// UsePyTorch asks the probe to locate libtorch inside an installed PyTorch
	// python package (LIBTORCH_USE_PYTORCH).
	UsePyTorch bool

	// CXX11ABI forces the _GLIBCXX_USE_CXX11_ABI setting. Nil means probe.
	CXX11ABI *bool

	// BypassVersionCheck disables the pinned-version comparison
	// (LIBTORCH_BYPASS_VERSION_CHECK).
	BypassVersionCheck bool

	// CUDAVersion is the requested accelerator variant, normalized to "cpu" or
	// "cuXY" (TORCH_CUDA_VERSION). Empty means no preference.
	CUDAVersion string

	// CUDAArchList is the raw TORCH_CUDA_ARCH_LIST value, parsed by pkg/cuda.
	CUDAArchList string

	// CUDAHome and friends are the raw directory hints. Discovery fallbacks
	// (nvcc on PATH, /usr/local/cuda, /opt/rocm) live in pkg/cuda.
	CUDAHome  string
	CUDNNHome string
	ROCmHome  string

	// CacheDir overrides the download cache location (TORCHLINK_CACHE_DIR).
	CacheDir string

	// NoDownload disables fetching prebuilt archives (TORCHLINK_NO_DOWNLOAD).
	NoDownload bool

	// Mirror replaces the upstream download host, either an https:// base URL
	// or an s3://bucket[/prefix] location (TORCHLINK_MIRROR).
	Mirror string
}

// FromOS reads the full environment surface. Invalid values are configuration
// errors rather than silent fallbacks.
func FromOS() (*Environment, error) {
	e := &Environment{
		LibtorchDir: os.Getenv(LibtorchEnvVarName),
		UsePyTorch:  truthy(os.Getenv(UsePyTorchEnvVarName)),
		CUDAHome:    firstOf(CUDAHomeEnvVarName, CUDAPathEnvVarName),
		CUDNNHome:   firstOf(CUDNNHomeEnvVarName, CUDNNPathEnvVarName),
		ROCmHome:    firstOf(ROCmHomeEnvVarName, ROCmPathEnvVarName),
		CacheDir:    os.Getenv(CacheDirEnvVarName),
		NoDownload:  truthy(os.Getenv(NoDownloadEnvVarName)),
		Mirror:      os.Getenv(MirrorEnvVarName),

		CUDAArchList:       os.Getenv(CUDAArchListEnvVarName),
		BypassVersionCheck: truthy(os.Getenv(BypassVersionCheckEnvVarName)),
	}

	if val := os.Getenv(CXX11ABIEnvVarName); val != "" {
		switch val {
		case "1":
			e.CXX11ABI = boolPtr(true)
		case "0":
			e.CXX11ABI = boolPtr(false)
		default:
			return nil, errors.Configf("%s must be 0 or 1, got %q", CXX11ABIEnvVarName, val)
		}
	}

	if val := os.Getenv(CUDAVersionEnvVarName); val != "" {
		normalized, err := NormalizeCUDAVersion(val)
		if err != nil {
			return nil, err
		}
		e.CUDAVersion = normalized
	}

	return e, nil
}

// NormalizeCUDAVersion canonicalizes an accelerator variant request.
// "11.8", "118", "cu118" and "CU11.8" all become "cu118"; "cpu" stays "cpu".
func NormalizeCUDAVersion(val string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(val))
	if s == "cpu" {
		return "cpu", nil
	}
	s = strings.TrimPrefix(s, "cu")

	normalized := "cu"
	for i, part := range strings.Split(s, ".") {
		if i >= 2 {
			break
		}
		normalized += part
	}
	for _, r := range normalized[2:] {
		if !unicode.IsDigit(r) {
			return "", errors.Configf("%s must look like 11.8, 118 or cu118, got %q", CUDAVersionEnvVarName, val)
		}
	}
	if len(normalized) == 2 {
		return "", errors.Configf("%s must look like 11.8, 118 or cu118, got %q", CUDAVersionEnvVarName, val)
	}
	return normalized, nil
}

// Names returns every environment variable the pipeline reads, sorted. The
// emitter turns these into rerun triggers so the orchestrator re-invokes the
// build when any of them changes.
func Names() []string {
	names := []string{
		LibtorchEnvVarName,
		UsePyTorchEnvVarName,
		CXX11ABIEnvVarName,
		BypassVersionCheckEnvVarName,
		CUDAVersionEnvVarName,
		CUDAArchListEnvVarName,
		CUDAHomeEnvVarName,
		CUDAPathEnvVarName,
		CUDNNHomeEnvVarName,
		CUDNNPathEnvVarName,
		ROCmHomeEnvVarName,
		ROCmPathEnvVarName,
		CacheDirEnvVarName,
		NoDownloadEnvVarName,
		MirrorEnvVarName,
	}
	sort.Strings(names)
	return names
}

func firstOf(names ...string) string {
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			return val
		}
	}
	return ""
}

func truthy(val string) bool {
	switch strings.ToLower(val) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}

func boolPtr(b bool) *bool {
	return &b
}
