package probe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/torchstack/torchlink/pkg/env"
	"github.com/torchstack/torchlink/pkg/errors"
)

func TestResolveRejectsBadVersionPin(t *testing.T) {
	environment := &env.Environment{CacheDir: t.TempDir(), NoDownload: true}
	_, err := Resolve(context.Background(), environment, Request{Version: "not.a.version"})
	require.Error(t, err)
	require.True(t, errors.IsConfig(err))
	require.Contains(t, err.Error(), "not.a.version")
}

func TestResolveABIPrecedence(t *testing.T) {
	candidate := &Candidate{CXX11ABI: boolPtr(false)}
	require.False(t, resolveABI(candidate, &env.Environment{}))
	require.True(t, resolveABI(candidate, &env.Environment{CXX11ABI: boolPtr(true)}))
	require.True(t, resolveABI(&Candidate{}, &env.Environment{}))
}

func TestCandidateVersionString(t *testing.T) {
	require.Equal(t, "2.0.1+cu118", (&Candidate{Version: "2.0.1", Variant: "cu118"}).versionString())
	require.Equal(t, "2.0.1", (&Candidate{Version: "2.0.1"}).versionString())
	require.Equal(t, "", (&Candidate{Variant: "cpu"}).versionString())
}
