package cargo

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListAppendOrder(t *testing.T) {
	list := &List{}
	list.LinkSearch("/opt/libtorch/lib")
	list.LinkLib("c10")
	list.LinkLib("torch_cpu")
	list.LinkLib("torch")
	list.RerunIfEnvChanged("LIBTORCH")

	require.Equal(t, []string{
		"cargo:rustc-link-search=native=/opt/libtorch/lib",
		"cargo:rustc-link-arg=-Wl,-rpath,/opt/libtorch/lib",
		"cargo:rustc-link-lib=c10",
		"cargo:rustc-link-lib=torch_cpu",
		"cargo:rustc-link-lib=torch",
		"cargo:rerun-if-env-changed=LIBTORCH",
	}, list.Lines())
}

func TestListNoDeduplication(t *testing.T) {
	list := &List{}
	list.LinkLib("torch")
	list.LinkLib("torch")

	require.Equal(t, 2, list.Len())
	require.Equal(t, list.Lines()[0], list.Lines()[1])
}

func TestPrintOnePerLine(t *testing.T) {
	list := &List{}
	list.LinkSearch("/usr/lib")
	list.Warning("falling back to cpu variant")

	var buf bytes.Buffer
	require.NoError(t, list.Print(&buf))
	require.Equal(t,
		"cargo:rustc-link-search=native=/usr/lib\n"+
			"cargo:rustc-link-arg=-Wl,-rpath,/usr/lib\n"+
			"cargo:warning=falling back to cpu variant\n",
		buf.String())
}

func TestCgoLines(t *testing.T) {
	var cgo Cgo
	cgo.AddInclude("/opt/libtorch/include")
	cgo.AddDefine("_GLIBCXX_USE_CXX11_ABI=1")
	cgo.AddLinkSearch("/opt/libtorch/lib")
	cgo.AddLib("torch")

	require.Equal(t, []string{
		"#cgo CXXFLAGS: -I/opt/libtorch/include -D_GLIBCXX_USE_CXX11_ABI=1",
		"#cgo LDFLAGS: -L/opt/libtorch/lib -Wl,-rpath,/opt/libtorch/lib -ltorch",
	}, cgo.Lines())
}

func TestCgoEmpty(t *testing.T) {
	var cgo Cgo
	require.Empty(t, cgo.Lines())

	var buf bytes.Buffer
	require.NoError(t, cgo.Print(&buf))
	require.Empty(t, buf.String())
}
