package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/torchstack/torchlink/pkg/cuda"
	"github.com/torchstack/torchlink/pkg/env"
	"github.com/torchstack/torchlink/pkg/util/console"
)

func newDebugCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "debug",
		Short:  "Inspect what the resolver sees",
		Hidden: true,
	}
	cmd.AddCommand(newDebugEnvCommand())
	return cmd
}

func newDebugEnvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Dump the environment variables the resolver consults",
		Args:  cobra.NoArgs,
		RunE:  debugEnvCommand,
	}
}

func debugEnvCommand(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range env.Names() {
		value, set := os.LookupEnv(name)
		if !set {
			fmt.Fprintf(w, "%s\t(unset)\n", name)
			continue
		}
		fmt.Fprintf(w, "%s\t%q\n", name, value)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if cudaHome := cuda.FindCUDAHome(os.Getenv(env.CUDAHomeEnvVarName)); cudaHome != "" {
		console.Infof("CUDA toolkit: %s", cudaHome)
	} else {
		console.Info("CUDA toolkit: not found")
	}
	if rocmHome := cuda.FindROCmHome(os.Getenv(env.ROCmHomeEnvVarName)); rocmHome != "" {
		console.Infof("ROCm: %s", rocmHome)
	} else {
		console.Info("ROCm: not found")
	}
	return nil
}
