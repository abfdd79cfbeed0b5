// Package build wires a resolved libtorch installation onto a
// compiler build: include paths, ABI defines, architecture flags and
// the link directives an orchestrating build system consumes.
package build

import (
	"context"
	"runtime"

	"github.com/torchstack/torchlink/pkg/cargo"
	"github.com/torchstack/torchlink/pkg/cc"
	"github.com/torchstack/torchlink/pkg/compat"
	"github.com/torchstack/torchlink/pkg/cuda"
	"github.com/torchstack/torchlink/pkg/env"
	"github.com/torchstack/torchlink/pkg/errors"
	"github.com/torchstack/torchlink/pkg/library"
	"github.com/torchstack/torchlink/pkg/probe"
)

// Options carries everything an assembly may add on top of what the
// installation itself supplies.
type Options struct {
	// UseCUDA compiles against the CUDA API. The installation must
	// have an accelerator runtime.
	UseCUDA bool

	// LinkPython links torch_python and the embedded interpreter,
	// located through python3-config.
	LinkPython bool

	// Extra include directories, link directories and libraries,
	// appended after the installation's own.
	IncludeDirs []string
	LinkDirs    []string
	Libraries   []string

	// Arches are the CUDA architectures to generate code for. Empty
	// means detect from the installed GPUs, falling back to the
	// default list.
	Arches []cuda.Arch

	// Parallel caps concurrent compiler processes.
	Parallel int

	// Commands receives the link directives. Nil skips directive
	// emission, for callers that only want the compile flags.
	Commands *cargo.List
}

// Cpp configures b to compile C++ sources against lib. Link
// directives are appended to opts.Commands as flag assembly goes, so
// search paths always precede the libraries that need them.
func Cpp(ctx context.Context, b *cc.Build, lib *library.Library, sources []string, opts Options) error {
	if opts.UseCUDA && !lib.CUDAAvailable() {
		return errors.Configf("The CUDA API was requested, but this libtorch build has no accelerator runtime")
	}

	b.Cpp(true).PIC(true).Parallel(opts.Parallel)

	includePaths, err := lib.IncludePaths(opts.UseCUDA)
	if err != nil {
		return err
	}
	b.Includes(includePaths)
	b.Includes(opts.IncludeDirs)

	if runtime.GOOS == "windows" {
		// no rpath emulation with cl.exe, compile flags only
		b.Files(sources)
		return nil
	}

	b.Std(compat.CXXStdFor(lib.Version))
	b.Flag(abiDefine(lib))
	b.Files(sources)

	if err := linkLibtorch(b, lib, opts, false); err != nil {
		return err
	}
	linkUser(b, opts, false)
	if opts.LinkPython {
		if err := linkPython(ctx, b, opts, false); err != nil {
			return err
		}
	}
	return nil
}

// CUDA configures b to compile CUDA sources against lib with nvcc.
func CUDA(ctx context.Context, b *cc.Build, lib *library.Library, sources []string, opts Options) error {
	if !lib.CUDAAvailable() {
		return errors.Configf("CUDA sources need an accelerator runtime, but this libtorch build has none")
	}
	if runtime.GOOS == "windows" {
		return errors.Configf("CUDA builds are not supported on windows")
	}

	arches := opts.Arches
	if len(arches) == 0 {
		arches = cuda.Arches(ctx, cuda.DefaultArchList())
	}

	b.CUDA(true).PIC(true).Parallel(opts.Parallel)

	includePaths, err := lib.IncludePaths(true)
	if err != nil {
		return err
	}
	b.Includes(includePaths)
	b.Includes(opts.IncludeDirs)

	b.Std(compat.CXXStdFor(lib.Version))
	b.Flag(abiDefine(lib))
	b.Flag("-DWITH_CUDA")
	b.Files(sources)

	for _, flag := range cuda.NVCCFlags(arches) {
		b.Flag(flag)
	}

	useCUDAOpts := opts
	useCUDAOpts.UseCUDA = true
	if err := linkLibtorch(b, lib, useCUDAOpts, true); err != nil {
		return err
	}
	linkUser(b, useCUDAOpts, true)
	if opts.LinkPython {
		if err := linkPython(ctx, b, useCUDAOpts, true); err != nil {
			return err
		}
	}
	return nil
}

// RerunTriggers appends the rerun-if directives: one per environment
// variable the pipeline reads, then one per source file.
func RerunTriggers(commands *cargo.List, sources []string) {
	if commands == nil {
		return
	}
	for _, name := range env.Names() {
		commands.RerunIfEnvChanged(name)
	}
	for _, source := range sources {
		commands.RerunIfChanged(source)
	}
}

func abiDefine(lib *library.Library) string {
	if lib.CXX11ABI {
		return "-D_GLIBCXX_USE_CXX11_ABI=1"
	}
	return "-D_GLIBCXX_USE_CXX11_ABI=0"
}

// linkLibtorch puts the installation's search paths and libraries on
// the build and mirrors them as directives.
func linkLibtorch(b *cc.Build, lib *library.Library, opts Options, nvcc bool) error {
	linkPaths, err := lib.LinkPaths(opts.UseCUDA)
	if err != nil {
		return err
	}
	for _, path := range linkPaths {
		addLinkPath(b, opts.Commands, path, nvcc)
	}
	libraries, err := lib.Libraries(opts.UseCUDA, opts.LinkPython)
	if err != nil {
		return err
	}
	for _, name := range libraries {
		addLibrary(b, opts.Commands, name)
	}
	return nil
}

func linkUser(b *cc.Build, opts Options, nvcc bool) {
	for _, path := range opts.LinkDirs {
		addLinkPath(b, opts.Commands, path, nvcc)
	}
	for _, name := range opts.Libraries {
		addLibrary(b, opts.Commands, name)
	}
}

// linkPython resolves the embedded interpreter last so its search
// paths never shadow libtorch's.
func linkPython(ctx context.Context, b *cc.Build, opts Options, nvcc bool) error {
	python, err := probe.ProbePython(ctx)
	if err != nil {
		return err
	}
	b.Includes(python.Includes)
	for _, path := range python.LinkSearches {
		addLinkPath(b, opts.Commands, path, nvcc)
	}
	for _, name := range python.Libraries {
		addLibrary(b, opts.Commands, name)
	}
	return nil
}

// addLinkPath teaches the compile step the runtime search path and
// records the matching link-search directive. nvcc needs linker flags
// forwarded explicitly.
func addLinkPath(b *cc.Build, commands *cargo.List, path string, nvcc bool) {
	if nvcc {
		b.Flag("-Xlinker")
	}
	b.Flag("-Wl,-rpath=" + path)
	if commands != nil {
		commands.LinkSearch(path)
	}
}

func addLibrary(b *cc.Build, commands *cargo.List, name string) {
	b.Flag("-l" + name)
	if commands != nil {
		commands.LinkLib(name)
	}
}
