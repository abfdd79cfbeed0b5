package probe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePythonConfig(t *testing.T) {
	output := "-I/usr/include/python3.10 -I/usr/include/python3.10\n" +
		"-L/usr/lib/python3.10/config-3.10-x86_64-linux-gnu -L/usr/lib " +
		"-lpython3.10 -lpthread -ldl -lutil -lm -Xlinker -export-dynamic\n"

	config := parsePythonConfig([]byte(output))
	require.Equal(t, []string{"/usr/include/python3.10", "/usr/include/python3.10"}, config.Includes)
	require.Equal(t, []string{"/usr/lib/python3.10/config-3.10-x86_64-linux-gnu", "/usr/lib"}, config.LinkSearches)
	require.Equal(t, []string{"python3.10", "pthread", "dl", "util", "m"}, config.Libraries)
}

func TestParsePythonConfigIgnoresUnknownFlags(t *testing.T) {
	config := parsePythonConfig([]byte("-Wl,-O1 -framework CoreFoundation -fno-strict-overflow\n"))
	require.Empty(t, config.Includes)
	require.Empty(t, config.LinkSearches)
	require.Empty(t, config.Libraries)
}
