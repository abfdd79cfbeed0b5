package cuda

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/torchstack/torchlink/pkg/errors"
)

func TestParseArch(t *testing.T) {
	for _, tt := range []struct {
		input    string
		expected Arch
	}{
		{"3.5", Arch{Major: 3, Minor: 5}},
		{"8.6", Arch{Major: 8, Minor: 6}},
		{"8.6+PTX", Arch{Major: 8, Minor: 6, PTX: true}},
		{"10.0", Arch{Major: 10, Minor: 0}},
	} {
		arch, err := ParseArch(tt.input)
		require.NoError(t, err)
		require.Equal(t, tt.expected, arch)
		require.Equal(t, tt.input, arch.String())
	}
}

func TestParseArchInvalid(t *testing.T) {
	for _, input := range []string{"", "86", "8", "8.", "8.6+ptx", "+PTX", "sm_86", "8.6 +PTX"} {
		_, err := ParseArch(input)
		require.Error(t, err, "input %q", input)
		require.True(t, errors.IsConfig(err))
	}
}

func TestNVCCFlag(t *testing.T) {
	require.Equal(t, "-gencode=arch=compute_75,code=sm_75", MustArch("7.5").NVCCFlag())
	require.Equal(t, "-gencode=arch=compute_86,code=compute_86", MustArch("8.6+PTX").NVCCFlag())
}

func TestParseList(t *testing.T) {
	arches, err := ParseList("7.5;8.0;8.6+PTX")
	require.NoError(t, err)
	require.Equal(t, []Arch{MustArch("7.5"), MustArch("8.0"), MustArch("8.6+PTX")}, arches)

	// aliases expand in place
	arches, err = ParseList("Turing;Ampere")
	require.NoError(t, err)
	require.Equal(t, []Arch{MustArch("7.5"), MustArch("8.0"), MustArch("8.6")}, arches)

	// whitespace and empty entries are tolerated
	arches, err = ParseList(" 7.0 ;; 7.5 ")
	require.NoError(t, err)
	require.Equal(t, []Arch{MustArch("7.0"), MustArch("7.5")}, arches)
}

func TestParseListInvalid(t *testing.T) {
	_, err := ParseList("7.5;Blackwell")
	require.Error(t, err)
	require.True(t, errors.IsConfig(err))

	_, err = ParseList("")
	require.Error(t, err)
	require.True(t, errors.IsConfig(err))
}

func TestSelectArches(t *testing.T) {
	configured := DefaultArchList()

	// duplicates collapse, result is sorted, newest gets PTX
	selected := SelectArches([]Arch{MustArch("8.6"), MustArch("7.5"), MustArch("8.6")}, configured)
	require.Equal(t, []Arch{MustArch("7.5"), MustArch("8.6+PTX")}, selected)

	// devices newer than the configured list are clamped down
	selected = SelectArches([]Arch{MustArch("9.0")}, configured)
	require.Equal(t, []Arch{MustArch("8.6+PTX")}, selected)

	selected = SelectArches([]Arch{MustArch("7.0")}, []Arch{MustArch("7.0"), MustArch("7.5")})
	require.Equal(t, []Arch{MustArch("7.0+PTX")}, selected)
}

func TestNVCCFlags(t *testing.T) {
	flags := NVCCFlags([]Arch{MustArch("8.0"), MustArch("8.6+PTX")})
	require.Equal(t, []string{
		"-gencode=arch=compute_80,code=sm_80",
		"-gencode=arch=compute_86,code=compute_86",
	}, flags)
}

func TestDefaultArchList(t *testing.T) {
	arches := DefaultArchList()
	require.NotEmpty(t, arches)
	require.Equal(t, MustArch("3.5"), arches[0])
	require.Equal(t, MustArch("8.6"), arches[len(arches)-1])
}

func TestKnownAliases(t *testing.T) {
	require.Contains(t, KnownAliases(), "Ampere")
	require.Contains(t, KnownAliases(), "Turing")
}
