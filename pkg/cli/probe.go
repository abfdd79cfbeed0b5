package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/torchstack/torchlink/pkg/library"
	"github.com/torchstack/torchlink/pkg/util/console"
)

var probeVersion string
var probeVariant string

func newProbeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Show which libtorch installation a build would use",
		Args:  cobra.NoArgs,
		RunE:  probeCommand,
	}
	addResolveFlags(cmd.Flags(), &probeVersion, &probeVariant)
	return cmd
}

func probeCommand(cmd *cobra.Command, args []string) error {
	lib, err := resolveFromFlags(cmd.Context(), probeVersion, probeVariant)
	if err != nil {
		return err
	}

	version := lib.Version
	if version == "" {
		version = "unknown"
	}
	abi := "pre-C++11"
	if lib.CXX11ABI {
		abi = "C++11"
	}

	console.Output(fmt.Sprintf("version:      %s", version))
	if lib.RootDir != "" {
		console.Output(fmt.Sprintf("root:         %s", lib.RootDir))
	}
	console.Output(fmt.Sprintf("lib dir:      %s", lib.LibDir))
	console.Output(fmt.Sprintf("include dirs: %s", strings.Join(lib.IncludeDirs, "\n              ")))
	console.Output(fmt.Sprintf("abi:          %s", abi))
	console.Output(fmt.Sprintf("accelerator:  %s", describeAccel(lib.Accel)))
	return nil
}

func describeAccel(accel library.Accelerator) string {
	switch accel.Kind {
	case library.APINone:
		return "none"
	case library.APIROCm:
		return fmt.Sprintf("%s (%s)", accel.Kind, accel.ROCmHome)
	default:
		return fmt.Sprintf("%s (%s)", accel.Kind, accel.CUDAHome)
	}
}
