// Package cc drives the host C++ and CUDA compilers. A Build collects
// flags the way callers hand them over, compiles every source into an
// object and archives the objects into a static library.
package cc

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/torchstack/torchlink/pkg/util/console"
)

// Build accumulates compiler configuration. The zero value is not
// usable, construct with New.
type Build struct {
	cpp      bool
	cuda     bool
	pic      bool
	std      string
	compiler string
	includes []string
	flags    []string
	files    []string
	outDir   string
	parallel int
}

func New() *Build {
	return &Build{}
}

// Cpp switches the build to C++ mode, compiling with c++ (or $CXX).
func (b *Build) Cpp(enabled bool) *Build {
	b.cpp = enabled
	return b
}

// CUDA switches the build to CUDA mode, compiling with nvcc (or
// $NVCC).
func (b *Build) CUDA(enabled bool) *Build {
	b.cuda = enabled
	return b
}

// PIC compiles position independent code.
func (b *Build) PIC(enabled bool) *Build {
	b.pic = enabled
	return b
}

// Std sets the language standard, e.g. "c++17".
func (b *Build) Std(std string) *Build {
	b.std = std
	return b
}

// Compiler overrides the compiler binary.
func (b *Build) Compiler(path string) *Build {
	b.compiler = path
	return b
}

func (b *Build) Include(dir string) *Build {
	b.includes = append(b.includes, dir)
	return b
}

func (b *Build) Includes(dirs []string) *Build {
	b.includes = append(b.includes, dirs...)
	return b
}

// Flag appends a raw compiler flag verbatim.
func (b *Build) Flag(flag string) *Build {
	b.flags = append(b.flags, flag)
	return b
}

func (b *Build) File(path string) *Build {
	b.files = append(b.files, path)
	return b
}

func (b *Build) Files(paths []string) *Build {
	b.files = append(b.files, paths...)
	return b
}

// OutDir sets where objects and the archive are written. A temporary
// directory is created when unset.
func (b *Build) OutDir(dir string) *Build {
	b.outDir = dir
	return b
}

// Parallel caps concurrent compiler processes. Zero means one per
// CPU.
func (b *Build) Parallel(n int) *Build {
	b.parallel = n
	return b
}

// Sources returns the files queued for compilation.
func (b *Build) Sources() []string {
	out := make([]string, len(b.files))
	copy(out, b.files)
	return out
}

// CompilerPath resolves which compiler binary the build runs.
func (b *Build) CompilerPath() string {
	if b.compiler != "" {
		return b.compiler
	}
	switch {
	case b.cuda:
		if nvcc := os.Getenv("NVCC"); nvcc != "" {
			return nvcc
		}
		return "nvcc"
	case b.cpp:
		if cxx := os.Getenv("CXX"); cxx != "" {
			return cxx
		}
		return "c++"
	default:
		if cc := os.Getenv("CC"); cc != "" {
			return cc
		}
		return "cc"
	}
}

// CompileArgs returns the argument list for compiling one source to
// the given object path.
func (b *Build) CompileArgs(source string, object string) []string {
	var args []string
	if b.pic {
		if b.cuda {
			// nvcc forwards host compiler flags behind -Xcompiler
			args = append(args, "-Xcompiler", "-fPIC")
		} else {
			args = append(args, "-fPIC")
		}
	}
	if b.std != "" {
		args = append(args, "-std="+b.std)
	}
	for _, dir := range b.includes {
		args = append(args, "-I"+dir)
	}
	args = append(args, b.flags...)
	args = append(args, "-c", source, "-o", object)
	return args
}

// TryCompile compiles every queued source and archives the objects
// into lib<name>.a, returning the archive path.
func (b *Build) TryCompile(ctx context.Context, name string) (string, error) {
	if len(b.files) == 0 {
		return "", fmt.Errorf("no source files to compile for %s", name)
	}
	outDir := b.outDir
	if outDir == "" {
		dir, err := os.MkdirTemp("", "torchlink-cc-")
		if err != nil {
			return "", err
		}
		outDir = dir
	} else if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}

	objects := make([]string, len(b.files))
	for i, source := range b.files {
		objects[i] = filepath.Join(outDir, objectName(source))
	}

	parallel := b.parallel
	if parallel <= 0 {
		parallel = runtime.NumCPU()
	}
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(parallel)
	for i := range b.files {
		source, object := b.files[i], objects[i]
		group.Go(func() error {
			return b.compileOne(ctx, source, object)
		})
	}
	if err := group.Wait(); err != nil {
		return "", err
	}

	archive := filepath.Join(outDir, "lib"+name+".a")
	arArgs := append([]string{"rcs", archive}, objects...)
	console.Debugf("Running %s %s", arBinary(), strings.Join(arArgs, " "))
	if output, err := exec.CommandContext(ctx, arBinary(), arArgs...).CombinedOutput(); err != nil {
		return "", fmt.Errorf("Failed to archive %s: %w\n%s", archive, err, output)
	}
	return archive, nil
}

func (b *Build) compileOne(ctx context.Context, source string, object string) error {
	compiler := b.CompilerPath()
	args := b.CompileArgs(source, object)
	console.Debugf("Running %s %s", compiler, strings.Join(args, " "))
	if output, err := exec.CommandContext(ctx, compiler, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("Failed to compile %s: %w\n%s", source, err, output)
	}
	return nil
}

// objectName keeps object files from distinct directories apart by
// suffixing a digest of the full source path.
func objectName(source string) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	digest := sha256.Sum256([]byte(source))
	return fmt.Sprintf("%s-%x.o", stem, digest[:4])
}

func arBinary() string {
	if ar := os.Getenv("AR"); ar != "" {
		return ar
	}
	return "ar"
}
