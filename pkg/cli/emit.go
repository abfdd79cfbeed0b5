package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/torchstack/torchlink/pkg/build"
	"github.com/torchstack/torchlink/pkg/cargo"
	"github.com/torchstack/torchlink/pkg/cc"
	"github.com/torchstack/torchlink/pkg/compat"
	"github.com/torchstack/torchlink/pkg/errors"
	"github.com/torchstack/torchlink/pkg/library"
)

var emitCUDA string
var emitFormat string
var emitLinkPython bool
var emitVersion string
var emitVariant string

func newEmitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Resolve libtorch and print the linker directives",
		Long: `Resolve libtorch and print the linker directives to stdout.

The cargo format prints one build-orchestrator directive per line, the
way a build script consumes them. The cgo format prints a preamble for
a Go source file instead.`,
		Args: cobra.NoArgs,
		RunE: emitCommand,
	}
	cmd.Flags().StringVar(&emitCUDA, "cuda", "auto", "Link the CUDA API: 'auto', 'on' or 'off'")
	cmd.Flags().StringVar(&emitFormat, "format", "cargo", "Output format, 'cargo' or 'cgo'")
	cmd.Flags().BoolVar(&emitLinkPython, "link-python", false, "Link the python bindings and the embedded interpreter")
	addResolveFlags(cmd.Flags(), &emitVersion, &emitVariant)
	return cmd
}

func emitCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	lib, err := resolveFromFlags(ctx, emitVersion, emitVariant)
	if err != nil {
		return err
	}

	useCUDA, err := resolveCUDAMode(emitCUDA, lib)
	if err != nil {
		return err
	}

	switch emitFormat {
	case "cargo":
		return emitCargo(ctx, lib, useCUDA)
	case "cgo":
		return emitCgo(lib, useCUDA)
	default:
		return errors.Configf("Unknown format %q, expected 'cargo' or 'cgo'", emitFormat)
	}
}

func resolveFromFlags(ctx context.Context, version string, variant string) (*library.Library, error) {
	environment, err := loadEnvironment()
	if err != nil {
		return nil, err
	}
	return resolveLibrary(ctx, environment, version, variant)
}

func resolveCUDAMode(mode string, lib *library.Library) (bool, error) {
	switch mode {
	case "auto":
		return lib.CUDAAvailable(), nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, errors.Configf("--cuda must be 'auto', 'on' or 'off', got %q", mode)
	}
}

func emitCargo(ctx context.Context, lib *library.Library, useCUDA bool) error {
	b := cc.New()
	commands := &cargo.List{}
	opts := build.Options{
		UseCUDA:    useCUDA,
		LinkPython: emitLinkPython,
		Commands:   commands,
	}
	if err := build.Cpp(ctx, b, lib, nil, opts); err != nil {
		return err
	}
	build.RerunTriggers(commands, nil)
	return commands.Print(os.Stdout)
}

func emitCgo(lib *library.Library, useCUDA bool) error {
	cgo := &cargo.Cgo{}

	includePaths, err := lib.IncludePaths(useCUDA)
	if err != nil {
		return err
	}
	for _, dir := range includePaths {
		cgo.AddInclude(dir)
	}
	cgo.AddFlag("-std=" + compat.CXXStdFor(lib.Version))
	abi := 0
	if lib.CXX11ABI {
		abi = 1
	}
	cgo.AddDefine(fmt.Sprintf("_GLIBCXX_USE_CXX11_ABI=%d", abi))

	linkPaths, err := lib.LinkPaths(useCUDA)
	if err != nil {
		return err
	}
	for _, dir := range linkPaths {
		cgo.AddLinkSearch(dir)
	}
	libraries, err := lib.Libraries(useCUDA, emitLinkPython)
	if err != nil {
		return err
	}
	for _, name := range libraries {
		cgo.AddLib(name)
	}

	return cgo.Print(os.Stdout)
}
