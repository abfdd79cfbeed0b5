package probe

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// PythonConfig describes how to compile against and embed the python
// runtime, as reported by python3-config.
type PythonConfig struct {
	Includes     []string
	LinkSearches []string
	Libraries    []string
}

// ProbePython runs python3-config to collect the flags for embedding
// the interpreter. Linking torch_python needs them.
func ProbePython(ctx context.Context) (*PythonConfig, error) {
	output, err := exec.CommandContext(ctx, "python3-config", "--includes", "--ldflags", "--embed").Output()
	if err != nil {
		return nil, fmt.Errorf("unable to run python3-config: %w", err)
	}
	return parsePythonConfig(output), nil
}

// parsePythonConfig picks the -I, -L and -l flags out of
// python3-config output. Anything else (-Wl,..., -framework, plain
// words) is dropped.
func parsePythonConfig(output []byte) *PythonConfig {
	config := &PythonConfig{}
	for _, flag := range strings.Fields(string(output)) {
		if len(flag) <= 2 {
			continue
		}
		key, value := flag[:2], flag[2:]
		switch key {
		case "-I":
			config.Includes = append(config.Includes, value)
		case "-L":
			config.LinkSearches = append(config.LinkSearches, value)
		case "-l":
			config.Libraries = append(config.Libraries, value)
		}
	}
	return config
}
