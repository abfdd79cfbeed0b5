// Package cuda knows about CUDA compute architectures and where the
// CUDA and ROCm toolkits live on the host.
package cuda

import (
	// blank import for embeds
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/torchstack/torchlink/pkg/errors"
	"github.com/torchstack/torchlink/pkg/util/console"
)

// Arch is a CUDA compute capability, e.g. 8.6. When PTX is set the
// architecture is compiled to PTX intermediate code so that newer
// devices can JIT it.
type Arch struct {
	Major int
	Minor int
	PTX   bool
}

var archPattern = regexp.MustCompile(`^(\d+)\.(\d+)(\+PTX)?$`)

// ParseArch parses an architecture in "X.Y" or "X.Y+PTX" form.
func ParseArch(s string) (Arch, error) {
	match := archPattern.FindStringSubmatch(s)
	if match == nil {
		return Arch{}, errors.Configf("Invalid CUDA architecture %q, expected \"X.Y\" or \"X.Y+PTX\"", s)
	}
	major, err := strconv.Atoi(match[1])
	if err != nil {
		return Arch{}, errors.Configf("Invalid CUDA architecture %q: %s", s, err)
	}
	minor, err := strconv.Atoi(match[2])
	if err != nil {
		return Arch{}, errors.Configf("Invalid CUDA architecture %q: %s", s, err)
	}
	return Arch{Major: major, Minor: minor, PTX: match[3] != ""}, nil
}

// MustArch is like ParseArch but panics on invalid input.
func MustArch(s string) Arch {
	arch, err := ParseArch(s)
	if err != nil {
		panic(err)
	}
	return arch
}

func (a *Arch) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	arch, err := ParseArch(s)
	if err != nil {
		return err
	}
	*a = arch
	return nil
}

func (a Arch) String() string {
	s := fmt.Sprintf("%d.%d", a.Major, a.Minor)
	if a.PTX {
		s += "+PTX"
	}
	return s
}

// NVCCFlag returns the -gencode flag selecting this architecture.
// PTX architectures compile to intermediate code instead of SASS.
func (a Arch) NVCCFlag() string {
	number := fmt.Sprintf("%d%d", a.Major, a.Minor)
	codeKind := "sm"
	if a.PTX {
		codeKind = "compute"
	}
	return fmt.Sprintf("-gencode=arch=compute_%s,code=%s_%s", number, codeKind, number)
}

// Compare orders architectures by major then minor version. The PTX
// flag does not participate in ordering.
func (a Arch) Compare(other Arch) int {
	if a.Major != other.Major {
		if a.Major < other.Major {
			return -1
		}
		return 1
	}
	if a.Minor != other.Minor {
		if a.Minor < other.Minor {
			return -1
		}
		return 1
	}
	return 0
}

type archData struct {
	DefaultArchList []Arch            `json:"default_arch_list"`
	Aliases         map[string][]Arch `json:"aliases"`
}

//go:embed cuda_arch_aliases.json
var archAliasData []byte
var archAliases archData

func init() {
	if err := json.Unmarshal(archAliasData, &archAliases); err != nil {
		console.Fatalf("Failed to load embedded CUDA architecture aliases: %s", err)
	}
}

// DefaultArchList returns the architectures targeted when
// TORCH_CUDA_ARCH_LIST is not set. The list matches the prebuilt
// libtorch binaries.
func DefaultArchList() []Arch {
	out := make([]Arch, len(archAliases.DefaultArchList))
	copy(out, archAliases.DefaultArchList)
	return out
}

// KnownAliases returns the named architecture groups accepted by
// ParseList, sorted alphabetically.
func KnownAliases() []string {
	names := make([]string, 0, len(archAliases.Aliases))
	for name := range archAliases.Aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseList parses a semicolon separated architecture list such as
// "7.5;8.0;8.6+PTX". Entries may be named groups like "Ampere", which
// expand to the architectures of that generation.
func ParseList(s string) ([]Arch, error) {
	var arches []Arch
	for _, token := range strings.Split(s, ";") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if expansion, ok := archAliases.Aliases[token]; ok {
			arches = append(arches, expansion...)
			continue
		}
		arch, err := ParseArch(token)
		if err != nil {
			return nil, errors.Configf("Invalid CUDA architecture list %q: unknown entry %q", s, token)
		}
		arches = append(arches, arch)
	}
	if len(arches) == 0 {
		return nil, errors.Configf("Invalid CUDA architecture list %q: no architectures", s)
	}
	return arches, nil
}

// NVCCFlags returns the -gencode flags for a list of architectures.
func NVCCFlags(arches []Arch) []string {
	flags := make([]string, 0, len(arches))
	for _, arch := range arches {
		flags = append(flags, arch.NVCCFlag())
	}
	return flags
}
