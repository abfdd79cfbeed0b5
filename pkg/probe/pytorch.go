package probe

import (
	"bufio"
	"bytes"
	"context"
	// blank import for embeds
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/torchstack/torchlink/pkg/util/version"
)

//go:embed data/probe_pytorch.py
var probePyTorchCode string

// probePyTorch asks an installed PyTorch package where its bundled
// libtorch lives. PyTorch knows its own header layout, ABI and
// version, so the candidate comes back fully described.
func probePyTorch(ctx context.Context) (*Candidate, error) {
	interpreter := pythonInterpreter()
	output, err := exec.CommandContext(ctx, interpreter, "-c", probePyTorchCode).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("error running %s: %s", interpreter, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("error running %s: %w", interpreter, err)
	}
	return parsePyTorchProbe(output)
}

// pythonInterpreter picks the interpreter to probe with. Inside a
// virtualenv plain "python" is the env's interpreter; outside one it
// may be python 2, so python3 is used.
func pythonInterpreter() string {
	if os.Getenv("VIRTUAL_ENV") != "" {
		return "python"
	}
	return "python3"
}

func parsePyTorchProbe(output []byte) (*Candidate, error) {
	candidate := &Candidate{Source: SourcePyTorch}

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "LIBTORCH_VERSION: "):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "LIBTORCH_VERSION: "))
			parsed, err := version.NewVersion(raw)
			if err != nil {
				return nil, fmt.Errorf("error parsing PyTorch version %q: %w", raw, err)
			}
			candidate.Version = parsed.Base()
			candidate.Variant = parsed.Variant()
		case strings.HasPrefix(line, "LIBTORCH_CXX11: "):
			switch strings.TrimSpace(strings.TrimPrefix(line, "LIBTORCH_CXX11: ")) {
			case "True":
				abi := true
				candidate.CXX11ABI = &abi
			case "False":
				abi := false
				candidate.CXX11ABI = &abi
			default:
				return nil, fmt.Errorf("error parsing this line %q", line)
			}
		case strings.HasPrefix(line, "LIBTORCH_INCLUDE: "):
			candidate.IncludeDirs = append(candidate.IncludeDirs, strings.TrimSpace(strings.TrimPrefix(line, "LIBTORCH_INCLUDE: ")))
		case strings.HasPrefix(line, "LIBTORCH_LIB: "):
			candidate.LibDir = strings.TrimSpace(strings.TrimPrefix(line, "LIBTORCH_LIB: "))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if candidate.CXX11ABI == nil {
		return nil, fmt.Errorf("no LIBTORCH_CXX11 in PyTorch probe output:\n%s", output)
	}
	if candidate.LibDir == "" {
		return nil, fmt.Errorf("no LIBTORCH_LIB in PyTorch probe output:\n%s", output)
	}
	return candidate, nil
}
