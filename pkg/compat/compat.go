package compat

import (
	// blank import for embeds
	_ "embed"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/torchstack/torchlink/pkg/util/console"
	"github.com/torchstack/torchlink/pkg/util/version"
)

// LibtorchRelease describes one libtorch release on the download
// server: the build variants published for it and the C++ standard
// its headers require.
type LibtorchRelease struct {
	Libtorch string
	Variants []string
	CXXStd   string
}

func (r *LibtorchRelease) UnmarshalJSON(data []byte) error {
	// to avoid unmarshalling stack overflow https://stackoverflow.com/questions/34859449/unmarshaljson-results-in-stack-overflow
	type tempType LibtorchRelease
	c := new(tempType)
	if err := json.Unmarshal(data, c); err != nil {
		return err
	}
	// fail on a corrupt matrix at startup rather than at resolve time
	version.MustVersion(c.Libtorch)
	*r = LibtorchRelease(*c)
	return nil
}

// Supports reports whether this release was published for the given
// build variant.
func (r *LibtorchRelease) Supports(variant string) bool {
	return slices.Contains(r.Variants, variant)
}

// LatestCUDA returns the newest CUDA variant published for this
// release, or "" if only CPU builds exist.
func (r *LibtorchRelease) LatestCUDA() string {
	latest := ""
	for _, variant := range r.Variants {
		if _, _, ok := ParseVariant(variant); !ok {
			continue
		}
		if latest == "" || VariantGreater(variant, latest) {
			latest = variant
		}
	}
	return latest
}

//go:generate go run ../../tools/variantgen/main.go -o libtorch_downloads.json
//go:embed libtorch_downloads.json
var libtorchDownloadsData []byte

// Releases holds every known libtorch release, newest first.
var Releases []LibtorchRelease

func init() {
	if err := json.Unmarshal(libtorchDownloadsData, &Releases); err != nil {
		console.Fatalf("Failed to load embedded libtorch release matrix: %s", err)
	}
	sort.Slice(Releases, func(i, j int) bool {
		return version.Greater(Releases[i].Libtorch, Releases[j].Libtorch)
	})
}

// DefaultVersion returns the version used when neither the
// environment nor the project configuration pins one.
func DefaultVersion() string {
	return Releases[0].Libtorch
}

// ReleaseFor returns the newest release matching ver. A version with
// zero patch matches any patch, so "2.1.0" selects the newest 2.1.x.
func ReleaseFor(ver string) (*LibtorchRelease, bool) {
	pin, err := version.NewVersion(ver)
	if err != nil {
		return nil, false
	}
	for i := range Releases {
		if pin.Matches(version.MustVersion(Releases[i].Libtorch)) {
			return &Releases[i], true
		}
	}
	return nil, false
}

// CXXStdFor returns the C++ standard flag value for a libtorch
// version, defaulting to c++17 for versions outside the matrix.
func CXXStdFor(ver string) string {
	if release, ok := ReleaseFor(ver); ok && release.CXXStd != "" {
		return release.CXXStd
	}
	return "c++17"
}

// ParseVariant splits a CUDA build variant like "cu118" into its
// toolkit version (11, 8). ok is false for non-CUDA variants such as
// "cpu".
func ParseVariant(variant string) (major int, minor int, ok bool) {
	digits, found := strings.CutPrefix(variant, "cu")
	if !found || digits == "" {
		return 0, 0, false
	}
	// the final digit is the minor version: cu118 is CUDA 11.8
	major, err := strconv.Atoi(digits[:len(digits)-1])
	if err != nil {
		return 0, 0, false
	}
	minor, err = strconv.Atoi(digits[len(digits)-1:])
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}

// VariantGreater orders build variants: CUDA beats CPU, and newer
// toolkits beat older ones.
func VariantGreater(a string, b string) bool {
	aMajor, aMinor, aCUDA := ParseVariant(a)
	bMajor, bMinor, bCUDA := ParseVariant(b)
	if aCUDA != bCUDA {
		return aCUDA
	}
	if !aCUDA {
		return false
	}
	if aMajor != bMajor {
		return aMajor > bMajor
	}
	return aMinor > bMinor
}
