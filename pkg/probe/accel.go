package probe

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/torchstack/torchlink/pkg/cuda"
	"github.com/torchstack/torchlink/pkg/env"
	"github.com/torchstack/torchlink/pkg/library"
	"github.com/torchstack/torchlink/pkg/util/console"
)

// DetectAccelerator inspects an installation's lib directory for the
// accelerator runtime it shipped with. A ROCm build needs ROCm on the
// host, a CUDA build needs a CUDA toolkit; when the host has neither,
// the result is a CPU-only accelerator regardless of the build.
func DetectAccelerator(libDir string, environment *env.Environment) library.Accelerator {
	if rocmHome := cuda.FindROCmHome(environment.ROCmHome); rocmHome != "" && hasSharedLib(libDir, "torch_hip") {
		return library.Accelerator{
			Kind:       library.APIROCm,
			ROCmHome:   rocmHome,
			MIOpenHome: filepath.Join(rocmHome, "miopen"),
		}
	}

	cudaHome := cuda.FindCUDAHome(environment.CUDAHome)
	if cudaHome == "" {
		return library.Accelerator{}
	}
	if hasSharedLib(libDir, "torch_cuda_cu") && hasSharedLib(libDir, "torch_cuda_cpp") {
		return library.Accelerator{
			Kind:      library.APICUDASplit,
			CUDAHome:  cudaHome,
			CUDNNHome: environment.CUDNNHome,
		}
	}
	if hasSharedLib(libDir, "torch_cuda") {
		return library.Accelerator{
			Kind:      library.APICUDA,
			CUDAHome:  cudaHome,
			CUDNNHome: environment.CUDNNHome,
		}
	}
	if environment.CUDAHome != "" {
		console.Warnf("%s is set to %q, but this libtorch build has no CUDA runtime", env.CUDAHomeEnvVarName, cudaHome)
	} else {
		console.Debugf("Found CUDA toolkit at %q, but this libtorch build has no CUDA runtime", cudaHome)
	}
	return library.Accelerator{}
}

func hasSharedLib(libDir string, name string) bool {
	var file string
	switch runtime.GOOS {
	case "linux":
		file = filepath.Join(libDir, "lib"+name+".so")
	case "windows":
		file = filepath.Join(libDir, name+".dll")
	default:
		return false
	}
	_, err := os.Stat(file)
	return err == nil
}
