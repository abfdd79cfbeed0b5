package probe

import (
	"github.com/torchstack/torchlink/pkg/compat"
	"github.com/torchstack/torchlink/pkg/env"
	"github.com/torchstack/torchlink/pkg/errors"
	"github.com/torchstack/torchlink/pkg/util/version"
)

// Request narrows which candidate installations are acceptable.
type Request struct {
	// Version pins the libtorch version. A zero patch acts as a
	// wildcard, "" accepts any version.
	Version string

	// Variant restricts cached builds to one variant ("cpu", "cu118").
	// "" accepts any variant, newest CUDA first.
	Variant string

	// CXX11ABI restricts cached builds to one ABI when non-nil.
	CXX11ABI *bool

	// Bypass skips the version pin comparison
	// (LIBTORCH_BYPASS_VERSION_CHECK).
	Bypass bool
}

// Select picks the installation to use. It is a pure function of its
// inputs.
//
// The override, system and PyTorch sources are taken in that order;
// they reflect explicit intent, so a version pin they fail is an
// error rather than a silent fallthrough. The cache is a pool:
// entries that miss the request are skipped, and among the rest the
// newest version wins, newest CUDA variant first on a tie.
//
// An empty result is a not-found error so callers can decide whether
// to download.
func Select(candidates []Candidate, req Request) (*Candidate, error) {
	for _, source := range []Source{SourceOverride, SourceSystem, SourcePyTorch} {
		for i := range candidates {
			if candidates[i].Source != source {
				continue
			}
			if err := checkVersionPin(&candidates[i], req); err != nil {
				return nil, err
			}
			return &candidates[i], nil
		}
	}

	var best *Candidate
	for i := range candidates {
		candidate := &candidates[i]
		if candidate.Source != SourceCache || !cacheMatches(candidate, req) {
			continue
		}
		if best == nil || cacheBetter(candidate, best) {
			best = candidate
		}
	}
	if best != nil {
		return best, nil
	}
	return nil, errors.NotFound("No libtorch installation found")
}

func checkVersionPin(candidate *Candidate, req Request) error {
	if req.Bypass || req.Version == "" || candidate.Version == "" {
		return nil
	}
	if !version.Matches(req.Version, candidate.Version) {
		return errors.VersionMismatchf(
			"Found libtorch %s via %s, but version %s is required. Set %s=1 to use it anyway",
			candidate.Version, candidate.Source, req.Version, env.BypassVersionCheckEnvVarName)
	}
	return nil
}

func cacheMatches(candidate *Candidate, req Request) bool {
	if req.Version != "" && !req.Bypass && !version.Matches(req.Version, candidate.Version) {
		return false
	}
	if req.Variant != "" && candidate.Variant != req.Variant {
		return false
	}
	if req.CXX11ABI != nil && candidate.CXX11ABI != nil && *candidate.CXX11ABI != *req.CXX11ABI {
		return false
	}
	return true
}

func cacheBetter(candidate *Candidate, best *Candidate) bool {
	if !version.Equal(candidate.Version, best.Version) {
		return version.Greater(candidate.Version, best.Version)
	}
	return compat.VariantGreater(candidate.Variant, best.Variant)
}
