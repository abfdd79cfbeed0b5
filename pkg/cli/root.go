package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/torchstack/torchlink/pkg/env"
	"github.com/torchstack/torchlink/pkg/global"
	"github.com/torchstack/torchlink/pkg/library"
	"github.com/torchstack/torchlink/pkg/probe"
	"github.com/torchstack/torchlink/pkg/settings"
	"github.com/torchstack/torchlink/pkg/util/console"
)

func NewRootCommand() (*cobra.Command, error) {
	rootCmd := cobra.Command{
		Use:     "torchlink",
		Short:   "Locate, download and link libtorch for native builds",
		Version: fmt.Sprintf("%s (built %s)", global.Version, global.BuildTime),
		// This stops errors being printed because we print them in cmd/torchlink/main.go
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if global.Verbose {
				console.SetLevel(console.DebugLevel)
			}
			cmd.SilenceUsage = true
		},
		SilenceErrors: true,
	}
	setPersistentFlags(&rootCmd)

	rootCmd.AddCommand(
		newEmitCommand(),
		newBuildCommand(),
		newProbeCommand(),
		newDownloadCommand(),
		newCacheCommand(),
		newArchesCommand(),
		newDebugCommand(),
	)

	return &rootCmd, nil
}

func setPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVarP(&global.Verbose, "verbose", "v", false, "Verbose output")
}

// addResolveFlags registers the flags shared by the commands that
// resolve a libtorch installation.
func addResolveFlags(flags *pflag.FlagSet, version *string, variant *string) {
	flags.StringVar(version, "torch-version", "", "Require a libtorch version, e.g. '2.0.0' or '2.0'")
	flags.StringVar(variant, "variant", "", "Prefer an accelerator variant, e.g. 'cu118' or 'cpu'")
}

// loadEnvironment reads the process environment and fills the gaps
// with the persisted user settings.
func loadEnvironment() (*env.Environment, error) {
	environment, err := env.FromOS()
	if err != nil {
		return nil, err
	}

	userSettings, err := settings.LoadUserSettings()
	if err != nil {
		return nil, err
	}
	if environment.CacheDir == "" {
		environment.CacheDir = userSettings.CacheDir
	}
	if environment.Mirror == "" {
		environment.Mirror = userSettings.Mirror
	}
	if environment.CUDAVersion == "" && userSettings.DefaultVariant != "" {
		normalized, err := env.NormalizeCUDAVersion(userSettings.DefaultVariant)
		if err != nil {
			return nil, err
		}
		environment.CUDAVersion = normalized
	}

	return environment, nil
}

// newRequest folds the environment pins into a resolution request.
// version and variant, when non-empty, come from the project config or
// a command flag and win over the environment.
func newRequest(environment *env.Environment, version string, variant string) probe.Request {
	if variant == "" {
		variant = environment.CUDAVersion
	}
	return probe.Request{
		Version:  version,
		Variant:  variant,
		CXX11ABI: environment.CXX11ABI,
		Bypass:   environment.BypassVersionCheck,
	}
}

func resolveLibrary(ctx context.Context, environment *env.Environment, version string, variant string) (*library.Library, error) {
	if variant != "" {
		normalized, err := env.NormalizeCUDAVersion(variant)
		if err != nil {
			return nil, err
		}
		variant = normalized
	}
	return probe.Resolve(ctx, environment, newRequest(environment, version, variant))
}
