package cuda

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// FindCUDAHome locates the CUDA toolkit root. The hint, when set,
// wins unconditionally. Otherwise the directory is derived from nvcc
// on PATH, falling back to /usr/local/cuda on Linux. Returns "" when
// no toolkit can be found.
func FindCUDAHome(hint string) string {
	if hint != "" {
		return hint
	}
	if nvcc, err := exec.LookPath("nvcc"); err == nil {
		// nvcc lives in <home>/bin
		return filepath.Dir(filepath.Dir(nvcc))
	}
	if runtime.GOOS == "linux" {
		if dir := "/usr/local/cuda"; isDir(dir) {
			return dir
		}
	}
	return ""
}

// FindROCmHome locates the ROCm installation root. The hint, when
// set, wins unconditionally. Otherwise the directory is derived from
// hipcc on PATH, falling back to /opt/rocm. Returns "" when no
// installation can be found.
func FindROCmHome(hint string) string {
	if hint != "" {
		return hint
	}
	if hipcc, err := exec.LookPath("hipcc"); err == nil {
		if resolved, err := filepath.EvalSymlinks(hipcc); err == nil {
			// hipcc lives in <home>/hip/bin
			hipDir := filepath.Dir(filepath.Dir(resolved))
			if filepath.Base(hipDir) == "hip" {
				return filepath.Dir(hipDir)
			}
		}
	}
	if runtime.GOOS == "linux" {
		if dir := "/opt/rocm"; isDir(dir) {
			return dir
		}
	}
	return ""
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
