package download

import (
	"fmt"
	"runtime"

	"github.com/torchstack/torchlink/pkg/errors"
	"github.com/torchstack/torchlink/pkg/global"
)

// ArchiveURL returns the canonical download URL for a libtorch build.
// The version separator in the file name is percent-encoded because
// the download server expects a literal "%2B", not "+".
func ArchiveURL(ver string, variant string, cxx11ABI bool) (string, error) {
	switch runtime.GOOS {
	case "linux":
		flavor := "shared-with-deps"
		if cxx11ABI {
			flavor = "cxx11-abi-shared-with-deps"
		}
		return fmt.Sprintf("%s/libtorch/%s/libtorch-%s-%s%%2B%s.zip",
			global.LibtorchDownloadHost, variant, flavor, ver, variant), nil
	case "darwin":
		// macOS builds are CPU only; arm64 archives got their own name
		// from 2.2 onwards
		if runtime.GOARCH == "arm64" {
			return fmt.Sprintf("%s/libtorch/cpu/libtorch-macos-arm64-%s.zip",
				global.LibtorchDownloadHost, ver), nil
		}
		return fmt.Sprintf("%s/libtorch/cpu/libtorch-macos-%s.zip",
			global.LibtorchDownloadHost, ver), nil
	case "windows":
		return fmt.Sprintf("%s/libtorch/%s/libtorch-win-shared-with-deps-%s%%2B%s.zip",
			global.LibtorchDownloadHost, variant, ver, variant), nil
	default:
		return "", errors.Configf("Prebuilt libtorch archives are not published for %s", runtime.GOOS)
	}
}
