package library

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/torchstack/torchlink/pkg/errors"
)

func cpuLibrary(root string) *Library {
	return &Library{
		RootDir:     root,
		Version:     "2.0.0+cpu",
		IncludeDirs: BaseIncludeDirs(root, false),
		LibDir:      filepath.Join(root, "lib"),
		CXX11ABI:    true,
	}
}

func TestIncludePathsCPU(t *testing.T) {
	lib := cpuLibrary("/opt/libtorch")

	paths, err := lib.IncludePaths(false)
	require.NoError(t, err)
	require.Equal(t, []string{
		"/opt/libtorch/include",
		"/opt/libtorch/include/torch/csrc/api/include",
		"/opt/libtorch/include/TH",
		"/opt/libtorch/include/THC",
	}, paths)
}

func TestIncludePathsFiltersUsrInclude(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("filter applies on linux only")
	}
	lib := &Library{
		IncludeDirs: []string{"/usr/include", "/usr/include/torch/csrc/api/include"},
		LibDir:      "/usr/lib",
	}

	paths, err := lib.IncludePaths(false)
	require.NoError(t, err)
	require.Equal(t, []string{"/usr/include/torch/csrc/api/include"}, paths)
}

func TestIncludePathsCUDARequiresAccelerator(t *testing.T) {
	lib := cpuLibrary("/opt/libtorch")

	_, err := lib.IncludePaths(true)
	require.Error(t, err)
	require.True(t, errors.IsConfig(err))
}

func TestLinkPathsCUDA(t *testing.T) {
	cudaHome := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(cudaHome, "lib64"), 0o755))

	lib := cpuLibrary("/opt/libtorch")
	lib.Accel = Accelerator{Kind: APICUDA, CUDAHome: cudaHome}

	paths, err := lib.LinkPaths(true)
	require.NoError(t, err)
	require.Equal(t, []string{
		"/opt/libtorch/lib",
		filepath.Join(cudaHome, "lib64"),
	}, paths)
}

func TestLinkPathsCUDAFallsBackToLib(t *testing.T) {
	cudaHome := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(cudaHome, "lib"), 0o755))

	lib := cpuLibrary("/opt/libtorch")
	lib.Accel = Accelerator{Kind: APICUDA, CUDAHome: cudaHome}

	paths, err := lib.LinkPaths(true)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cudaHome, "lib"), paths[1])
}

func TestLinkPathsCUDAWithNoLibDirs(t *testing.T) {
	lib := cpuLibrary("/opt/libtorch")
	lib.Accel = Accelerator{Kind: APICUDA, CUDAHome: filepath.Join(t.TempDir(), "empty")}

	_, err := lib.LinkPaths(true)
	require.Error(t, err)
	require.True(t, errors.IsConfig(err))
}

func TestLibraries(t *testing.T) {
	lib := cpuLibrary("/opt/libtorch")

	libs, err := lib.Libraries(false, false)
	require.NoError(t, err)
	require.Equal(t, "c10", libs[0])
	require.Equal(t, "torch_cpu", libs[1])
	require.Equal(t, "torch", libs[2])
	if runtime.GOOS == "linux" {
		require.Contains(t, libs, "gomp")
	}
}

func TestLibrariesPython(t *testing.T) {
	lib := cpuLibrary("/opt/libtorch")

	libs, err := lib.Libraries(false, true)
	require.NoError(t, err)
	require.Contains(t, libs, "torch_python")
}

func TestLibrariesCUDAVariants(t *testing.T) {
	lib := cpuLibrary("/opt/libtorch")

	lib.Accel = Accelerator{Kind: APICUDA, CUDAHome: "/usr/local/cuda"}
	libs, err := lib.Libraries(true, false)
	require.NoError(t, err)
	require.Subset(t, libs, []string{"cudart", "c10_cuda", "torch_cuda"})
	require.NotContains(t, libs, "torch_cuda_cu")

	lib.Accel.Kind = APICUDASplit
	libs, err = lib.Libraries(true, false)
	require.NoError(t, err)
	require.Subset(t, libs, []string{"cudart", "c10_cuda", "torch_cuda_cu", "torch_cuda_cpp"})
	require.NotContains(t, libs, "torch_cuda")

	lib.Accel = Accelerator{Kind: APIROCm, ROCmHome: "/opt/rocm", MIOpenHome: "/opt/rocm/miopen"}
	libs, err = lib.Libraries(true, false)
	require.NoError(t, err)
	require.Subset(t, libs, []string{"amdhip64", "c10_hip", "torch_hip"})
}

func TestAPIKindString(t *testing.T) {
	require.Equal(t, "none", APINone.String())
	require.Equal(t, "cuda", APICUDA.String())
	require.Equal(t, "cuda-split", APICUDASplit.String())
	require.Equal(t, "rocm", APIROCm.String())
}
