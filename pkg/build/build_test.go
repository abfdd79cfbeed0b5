package build

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/torchstack/torchlink/pkg/cargo"
	"github.com/torchstack/torchlink/pkg/cc"
	"github.com/torchstack/torchlink/pkg/cuda"
	"github.com/torchstack/torchlink/pkg/env"
	"github.com/torchstack/torchlink/pkg/errors"
	"github.com/torchstack/torchlink/pkg/library"
)

func cpuLibrary(t *testing.T) *library.Library {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "include"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lib"), 0o755))
	return &library.Library{
		RootDir:     root,
		Version:     "2.0.0+cpu",
		IncludeDirs: library.BaseIncludeDirs(root, false),
		LibDir:      filepath.Join(root, "lib"),
		CXX11ABI:    true,
	}
}

func cudaLibrary(t *testing.T) *library.Library {
	t.Helper()
	lib := cpuLibrary(t)
	cudaHome := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(cudaHome, "lib64"), 0o755))
	lib.Version = "2.0.0+cu118"
	lib.Accel = library.Accelerator{Kind: library.APICUDA, CUDAHome: cudaHome}
	return lib
}

func requireBefore(t *testing.T, list []string, first string, second string) {
	t.Helper()
	i := slices.Index(list, first)
	j := slices.Index(list, second)
	require.NotEqual(t, -1, i, "missing %q", first)
	require.NotEqual(t, -1, j, "missing %q", second)
	require.Less(t, i, j, "%q should precede %q", first, second)
}

func TestCppAssemblesCPUBuild(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("assembly under test is the unix one")
	}
	lib := cpuLibrary(t)
	b := cc.New()
	commands := &cargo.List{}

	err := Cpp(context.Background(), b, lib, []string{"nms_cpu.cpp"}, Options{Commands: commands})
	require.NoError(t, err)

	require.Equal(t, []string{"nms_cpu.cpp"}, b.Sources())

	args := b.CompileArgs("nms_cpu.cpp", "nms_cpu.o")
	require.Contains(t, args, "-fPIC")
	require.Contains(t, args, "-std=c++17")
	require.Contains(t, args, "-I"+filepath.Join(lib.RootDir, "include"))
	require.Contains(t, args, "-D_GLIBCXX_USE_CXX11_ABI=1")
	require.Contains(t, args, "-Wl,-rpath="+lib.LibDir)
	require.NotContains(t, args, "-DWITH_CUDA")
	require.NotContains(t, args, "-Xlinker")

	requireBefore(t, commands.Lines(),
		"cargo:rustc-link-search=native="+lib.LibDir,
		"cargo:rustc-link-lib=torch")

	if runtime.GOOS == "linux" {
		require.Equal(t, []string{
			"cargo:rustc-link-search=native=" + lib.LibDir,
			"cargo:rustc-link-arg=-Wl,-rpath," + lib.LibDir,
			"cargo:rustc-link-lib=c10",
			"cargo:rustc-link-lib=torch_cpu",
			"cargo:rustc-link-lib=torch",
			"cargo:rustc-link-lib=gomp",
		}, commands.Lines())
	}
}

func TestCppIsDeterministic(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("assembly under test is the unix one")
	}
	lib := cpuLibrary(t)
	sources := []string{"ops.cpp", "kernels.cpp"}

	first := cc.New()
	firstCommands := &cargo.List{}
	require.NoError(t, Cpp(context.Background(), first, lib, sources, Options{Commands: firstCommands}))

	second := cc.New()
	secondCommands := &cargo.List{}
	require.NoError(t, Cpp(context.Background(), second, lib, sources, Options{Commands: secondCommands}))

	require.Equal(t, first.CompileArgs("ops.cpp", "ops.o"), second.CompileArgs("ops.cpp", "ops.o"))
	require.Equal(t, firstCommands.Lines(), secondCommands.Lines())
}

func TestCppPreCXX11ABIDefine(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("assembly under test is the unix one")
	}
	lib := cpuLibrary(t)
	lib.CXX11ABI = false
	b := cc.New()

	require.NoError(t, Cpp(context.Background(), b, lib, []string{"ops.cpp"}, Options{}))

	args := b.CompileArgs("ops.cpp", "ops.o")
	require.Contains(t, args, "-D_GLIBCXX_USE_CXX11_ABI=0")
	require.NotContains(t, args, "-D_GLIBCXX_USE_CXX11_ABI=1")
}

func TestCppOlderVersionUsesOlderStandard(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("assembly under test is the unix one")
	}
	lib := cpuLibrary(t)
	lib.Version = "1.13.1+cpu"
	b := cc.New()

	require.NoError(t, Cpp(context.Background(), b, lib, []string{"ops.cpp"}, Options{}))
	require.Contains(t, b.CompileArgs("ops.cpp", "ops.o"), "-std=c++14")
}

func TestCppUserExtrasFollowInstallation(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("assembly under test is the unix one")
	}
	lib := cpuLibrary(t)
	b := cc.New()
	commands := &cargo.List{}
	opts := Options{
		IncludeDirs: []string{"/opt/extra/include"},
		LinkDirs:    []string{"/opt/extra/lib"},
		Libraries:   []string{"extra"},
		Commands:    commands,
	}

	require.NoError(t, Cpp(context.Background(), b, lib, []string{"ops.cpp"}, opts))

	args := b.CompileArgs("ops.cpp", "ops.o")
	requireBefore(t, args, "-I"+filepath.Join(lib.RootDir, "include"), "-I/opt/extra/include")
	requireBefore(t, args, "-ltorch", "-lextra")

	lines := commands.Lines()
	requireBefore(t, lines, "cargo:rustc-link-lib=torch", "cargo:rustc-link-search=native=/opt/extra/lib")
	requireBefore(t, lines, "cargo:rustc-link-search=native=/opt/extra/lib", "cargo:rustc-link-lib=extra")
	require.Equal(t, "cargo:rustc-link-lib=extra", lines[len(lines)-1])
}

func TestCppWithoutCommandSink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("assembly under test is the unix one")
	}
	lib := cpuLibrary(t)
	b := cc.New()

	require.NoError(t, Cpp(context.Background(), b, lib, []string{"ops.cpp"}, Options{}))

	args := b.CompileArgs("ops.cpp", "ops.o")
	require.Contains(t, args, "-ltorch")
	require.Contains(t, args, "-Wl,-rpath="+lib.LibDir)
}

func TestCppCUDARequestedWithoutAccelerator(t *testing.T) {
	lib := cpuLibrary(t)
	b := cc.New()
	commands := &cargo.List{}

	err := Cpp(context.Background(), b, lib, []string{"ops.cpp"}, Options{UseCUDA: true, Commands: commands})
	require.Error(t, err)
	require.True(t, errors.IsConfig(err))
	require.Zero(t, commands.Len())
	require.Empty(t, b.Sources())
}

func TestCUDAAssembly(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("assembly under test is the unix one")
	}
	lib := cudaLibrary(t)
	b := cc.New()
	commands := &cargo.List{}
	opts := Options{
		Arches: []cuda.Arch{
			{Major: 7, Minor: 0},
			{Major: 8, Minor: 6, PTX: true},
		},
		Commands: commands,
	}

	require.NoError(t, CUDA(context.Background(), b, lib, []string{"nms_cuda.cu"}, opts))

	args := b.CompileArgs("nms_cuda.cu", "nms_cuda.o")
	require.Contains(t, args, "-Xcompiler")
	require.Contains(t, args, "-DWITH_CUDA")
	require.Contains(t, args, "-gencode=arch=compute_70,code=sm_70")
	require.Contains(t, args, "-gencode=arch=compute_86,code=compute_86")

	rpath := slices.Index(args, "-Wl,-rpath="+lib.LibDir)
	require.NotEqual(t, -1, rpath)
	require.Equal(t, "-Xlinker", args[rpath-1])

	lines := commands.Lines()
	require.Contains(t, lines, "cargo:rustc-link-search=native="+lib.LibDir)
	require.Contains(t, lines, "cargo:rustc-link-search=native="+filepath.Join(lib.Accel.CUDAHome, "lib64"))
	require.Contains(t, lines, "cargo:rustc-link-lib=cudart")
	require.Contains(t, lines, "cargo:rustc-link-lib=torch_cuda")
	requireBefore(t, lines,
		"cargo:rustc-link-search=native="+filepath.Join(lib.Accel.CUDAHome, "lib64"),
		"cargo:rustc-link-lib=cudart")
}

func TestCUDAWithoutAccelerator(t *testing.T) {
	lib := cpuLibrary(t)
	b := cc.New()
	commands := &cargo.List{}

	err := CUDA(context.Background(), b, lib, []string{"ops.cu"}, Options{Commands: commands})
	require.Error(t, err)
	require.True(t, errors.IsConfig(err))
	require.Zero(t, commands.Len())
	require.Empty(t, b.Sources())
}

func TestRerunTriggers(t *testing.T) {
	commands := &cargo.List{}
	commands.LinkLib("torch")

	RerunTriggers(commands, []string{"ops.cpp", "kernels.cu"})

	lines := commands.Lines()
	require.Equal(t, "cargo:rustc-link-lib=torch", lines[0])
	names := env.Names()
	for i, name := range names {
		require.Equal(t, "cargo:rerun-if-env-changed="+name, lines[1+i])
	}
	require.Equal(t, "cargo:rerun-if-changed=ops.cpp", lines[1+len(names)])
	require.Equal(t, "cargo:rerun-if-changed=kernels.cu", lines[2+len(names)])
}

func TestRerunTriggersNilSink(t *testing.T) {
	RerunTriggers(nil, []string{"ops.cpp"})
}
