package cli

import (
	"github.com/spf13/cobra"

	"github.com/torchstack/torchlink/pkg/compat"
	"github.com/torchstack/torchlink/pkg/download"
	"github.com/torchstack/torchlink/pkg/env"
	"github.com/torchstack/torchlink/pkg/util/console"
)

var downloadVersion string
var downloadVariant string
var downloadPreCXX11ABI bool

func newDownloadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download a prebuilt libtorch into the cache",
		Args:  cobra.NoArgs,
		RunE:  downloadCommand,
	}
	cmd.Flags().StringVar(&downloadVersion, "torch-version", "", "The libtorch version to download, defaults to the newest known release")
	cmd.Flags().StringVar(&downloadVariant, "variant", "", "The build variant, e.g. 'cu118', '11.8' or 'cpu'")
	cmd.Flags().BoolVar(&downloadPreCXX11ABI, "pre-cxx11-abi", false, "Download the pre-C++11 ABI build")
	return cmd
}

func downloadCommand(cmd *cobra.Command, args []string) error {
	environment, err := loadEnvironment()
	if err != nil {
		return err
	}
	cacheDir, err := download.CacheDir(environment)
	if err != nil {
		return err
	}

	version := downloadVersion
	if version == "" {
		version = compat.DefaultVersion()
	} else if release, ok := compat.ReleaseFor(version); ok {
		version = release.Libtorch
	}

	variant := downloadVariant
	if variant == "" {
		variant = environment.CUDAVersion
	}
	if variant == "" {
		variant = "cpu"
	} else {
		variant, err = env.NormalizeCUDAVersion(variant)
		if err != nil {
			return err
		}
	}

	rootDir, err := download.Libtorch(cmd.Context(), download.Options{
		Version:  version,
		Variant:  variant,
		CXX11ABI: !downloadPreCXX11ABI,
		CacheDir: cacheDir,
		Mirror:   environment.Mirror,
	})
	if err != nil {
		return err
	}

	console.Output(rootDir)
	return nil
}
