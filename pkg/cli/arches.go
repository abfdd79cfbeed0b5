package cli

import (
	"github.com/spf13/cobra"

	"github.com/torchstack/torchlink/pkg/cuda"
	"github.com/torchstack/torchlink/pkg/util/console"
)

var archesFlags bool

func newArchesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arches",
		Short: "Show the CUDA architectures a build would target",
		Long: `Show the CUDA architectures a build would target.

The configured list comes from TORCH_CUDA_ARCH_LIST when set, clamped
to the compute capabilities of the visible GPUs.`,
		Args: cobra.NoArgs,
		RunE: archesCommand,
	}
	cmd.Flags().BoolVar(&archesFlags, "flags", false, "Print nvcc gencode flags instead of capabilities")
	return cmd
}

func archesCommand(cmd *cobra.Command, args []string) error {
	environment, err := loadEnvironment()
	if err != nil {
		return err
	}

	configured := cuda.DefaultArchList()
	if environment.CUDAArchList != "" {
		configured, err = cuda.ParseList(environment.CUDAArchList)
		if err != nil {
			return err
		}
	}

	arches := cuda.Arches(cmd.Context(), configured)
	if archesFlags {
		for _, flag := range cuda.NVCCFlags(arches) {
			console.Output(flag)
		}
		return nil
	}
	for _, arch := range arches {
		console.Output(arch.String())
	}
	return nil
}
