package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/torchstack/torchlink/pkg/build"
	"github.com/torchstack/torchlink/pkg/cargo"
	"github.com/torchstack/torchlink/pkg/cc"
	"github.com/torchstack/torchlink/pkg/config"
	"github.com/torchstack/torchlink/pkg/global"
	"github.com/torchstack/torchlink/pkg/util/console"
)

var buildOutDir string
var buildParallel int
var buildQuiet bool

func newBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile the project sources from torchlink.yaml against libtorch",
		Args:  cobra.NoArgs,
		RunE:  buildCommand,
	}
	cmd.Flags().StringVar(&buildOutDir, "out-dir", "build", "Directory for objects and archives, relative to the project root")
	cmd.Flags().IntVarP(&buildParallel, "parallel", "j", 0, "Number of parallel compiler processes, 0 for one per CPU")
	cmd.Flags().BoolVarP(&buildQuiet, "quiet", "q", false, "Skip the directive output, only build")
	return cmd
}

func buildCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, projectDir, err := config.GetConfig(global.ConfigFilename)
	if err != nil {
		return err
	}

	environment, err := loadEnvironment()
	if err != nil {
		return err
	}
	lib, err := resolveLibrary(ctx, environment, cfg.Version, cfg.Variant)
	if err != nil {
		return err
	}
	console.Debugf("Building against libtorch %s in %s", lib.Version, lib.RootDir)

	useCUDA, err := cfg.GPUEnabled(lib.CUDAAvailable())
	if err != nil {
		return err
	}

	sources, err := cfg.ExpandSources(projectDir)
	if err != nil {
		return err
	}

	outDir := buildOutDir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(projectDir, outDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	commands := &cargo.List{}
	opts := build.Options{
		UseCUDA:     useCUDA,
		LinkPython:  cfg.LinkPython,
		IncludeDirs: cfg.IncludeDirs,
		LinkDirs:    cfg.LinkDirs,
		Libraries:   cfg.Libraries,
		Arches:      cfg.Arches(),
		Parallel:    buildParallel,
		Commands:    commands,
	}

	b := cc.New().OutDir(outDir)
	if err := build.Cpp(ctx, b, lib, sources, opts); err != nil {
		return err
	}
	archive, err := b.TryCompile(ctx, cfg.Name)
	if err != nil {
		return err
	}
	console.Infof("Built %s", archive)

	allSources := sources
	cudaArchiveBuilt := false
	if len(cfg.CUDASources) > 0 && useCUDA {
		cudaSources, err := cfg.ExpandCUDASources(projectDir)
		if err != nil {
			return err
		}
		allSources = append(allSources, cudaSources...)

		// the host archive already emitted the shared link set
		cudaOpts := opts
		cudaOpts.Commands = nil
		cudaBuild := cc.New().OutDir(outDir)
		if err := build.CUDA(ctx, cudaBuild, lib, cudaSources, cudaOpts); err != nil {
			return err
		}
		cudaArchive, err := cudaBuild.TryCompile(ctx, cfg.Name+"_cuda")
		if err != nil {
			return err
		}
		console.Infof("Built %s", cudaArchive)
		cudaArchiveBuilt = true
	}

	commands.LinkSearch(outDir)
	if cudaArchiveBuilt {
		commands.LinkLib("static=" + cfg.Name + "_cuda")
	}
	commands.LinkLib("static=" + cfg.Name)

	if buildQuiet {
		return nil
	}
	build.RerunTriggers(commands, allSources)
	commands.RerunIfChanged(filepath.Join(projectDir, global.ConfigFilename))
	return commands.Print(os.Stdout)
}
