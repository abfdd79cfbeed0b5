package cuda

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/torchstack/torchlink/pkg/util/console"
)

// DeviceArches returns the compute capability of each visible GPU, as
// reported by nvidia-smi. The result may contain duplicates when
// several identical devices are installed.
func DeviceArches(ctx context.Context) ([]Arch, error) {
	cmd := exec.CommandContext(ctx, "nvidia-smi", "--query-gpu=compute_cap", "--format=csv,noheader")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("Failed to query GPU compute capabilities: %w", err)
	}
	var arches []Arch
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		arch, err := ParseArch(line)
		if err != nil {
			return nil, fmt.Errorf("Failed to parse nvidia-smi output %q: %w", line, err)
		}
		arches = append(arches, arch)
	}
	if len(arches) == 0 {
		return nil, fmt.Errorf("nvidia-smi reported no GPUs")
	}
	return arches, nil
}

// SelectArches narrows the device architectures to ones the configured
// list supports. Devices newer than the newest configured architecture
// are clamped down to it, the result is deduplicated and sorted, and
// the newest selected architecture also gets a PTX build so future
// devices can JIT the kernels.
func SelectArches(devices []Arch, configured []Arch) []Arch {
	if len(devices) == 0 || len(configured) == 0 {
		return nil
	}
	maxArch := configured[0]
	for _, arch := range configured[1:] {
		if arch.Compare(maxArch) > 0 {
			maxArch = arch
		}
	}
	maxArch.PTX = false

	var selected []Arch
	seen := map[Arch]bool{}
	for _, device := range devices {
		device.PTX = false
		if device.Compare(maxArch) > 0 {
			device = maxArch
		}
		if !seen[device] {
			seen[device] = true
			selected = append(selected, device)
		}
	}
	sort.Slice(selected, func(i, j int) bool {
		return selected[i].Compare(selected[j]) < 0
	})
	selected[len(selected)-1].PTX = true
	return selected
}

// Arches decides which architectures to compile for. It prefers the
// installed GPUs, narrowed by SelectArches; when no GPU can be
// queried it falls back to the configured list.
func Arches(ctx context.Context, configured []Arch) []Arch {
	devices, err := DeviceArches(ctx)
	if err != nil {
		console.Debugf("Compiling for all configured CUDA architectures: %s", err)
		return normalizeArches(configured)
	}
	return SelectArches(devices, configured)
}

func normalizeArches(arches []Arch) []Arch {
	var out []Arch
	seen := map[Arch]bool{}
	for _, arch := range arches {
		if !seen[arch] {
			seen[arch] = true
			out = append(out, arch)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Compare(out[j]) < 0
	})
	return out
}
