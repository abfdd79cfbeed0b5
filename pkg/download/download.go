// Package download fetches prebuilt libtorch archives and keeps the
// extracted builds in a local cache.
package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mholt/archiver/v3"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/torchstack/torchlink/pkg/compat"
	"github.com/torchstack/torchlink/pkg/errors"
	"github.com/torchstack/torchlink/pkg/util/console"
	"github.com/torchstack/torchlink/pkg/util/version"
)

// Options selects the build to download. Version and Variant are
// required; callers resolve defaults before getting here.
type Options struct {
	Version  string
	Variant  string
	CXX11ABI bool
	CacheDir string
	Mirror   string
}

// Libtorch makes sure the requested build is extracted in the cache
// and returns its installation root. A finished cache entry is reused
// without touching the network, so repeated calls are cheap.
func Libtorch(ctx context.Context, opts Options) (string, error) {
	if opts.Version == "" || opts.Variant == "" {
		return "", errors.Configf("Both a libtorch version and a build variant are required for download")
	}
	if _, err := version.NewVersion(opts.Version); err != nil {
		return "", errors.Configf("Invalid libtorch version %q: %s", opts.Version, err)
	}
	if err := checkPublished(opts.Version, opts.Variant); err != nil {
		return "", err
	}

	entryDir := filepath.Join(opts.CacheDir, entryKey(opts.Version, opts.Variant, opts.CXX11ABI))
	rootDir := filepath.Join(entryDir, "libtorch")
	if isFinished(entryDir) {
		console.Debugf("Using cached libtorch at %s", rootDir)
		return rootDir, nil
	}

	archiveURL, err := ArchiveURL(opts.Version, opts.Variant, opts.CXX11ABI)
	if err != nil {
		return "", err
	}

	tmpDir := filepath.Join(opts.CacheDir, "tmp-"+uuid.New().String())
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	archivePath := filepath.Join(tmpDir, "libtorch.zip")
	if err := fetchArchive(ctx, archiveURL, opts.Mirror, archivePath); err != nil {
		return "", err
	}

	unpackDir := filepath.Join(tmpDir, "unpacked")
	zip := archiver.NewZip()
	if err := zip.Unarchive(archivePath, unpackDir); err != nil {
		return "", errors.Archive("Failed to extract "+archiveURL, err)
	}
	extractedRoot := filepath.Join(unpackDir, "libtorch")
	if !isDir(extractedRoot) {
		return "", errors.Archivef("Archive %s did not contain a libtorch directory", archiveURL)
	}

	// replace any stale partial entry in one move
	if err := os.RemoveAll(entryDir); err != nil {
		return "", err
	}
	if err := os.MkdirAll(entryDir, 0o755); err != nil {
		return "", err
	}
	if err := os.Rename(extractedRoot, rootDir); err != nil {
		return "", fmt.Errorf("Failed to move %s into the cache: %w", extractedRoot, err)
	}
	if err := os.WriteFile(filepath.Join(entryDir, stampName), []byte(archiveURL+"\n"), 0o644); err != nil {
		return "", err
	}
	console.Infof("Downloaded libtorch %s+%s to %s", opts.Version, opts.Variant, rootDir)
	return rootDir, nil
}

// checkPublished rejects variants the release matrix knows were never
// published. Versions missing from the matrix entirely are attempted
// anyway, so new releases work before the matrix catches up.
func checkPublished(ver string, variant string) error {
	for i := range compat.Releases {
		if !version.Equal(ver, compat.Releases[i].Libtorch) {
			continue
		}
		if !compat.Releases[i].Supports(variant) {
			return errors.Configf("libtorch %s has no %s build, published variants are: %s",
				ver, variant, strings.Join(compat.Releases[i].Variants, ", "))
		}
		return nil
	}
	console.Warnf("libtorch %s is not in the known release matrix, attempting download anyway", ver)
	return nil
}

// isFinished reports whether a cache entry completed an earlier
// download. The stamp is written only after the archive is extracted
// into place.
func isFinished(entryDir string) bool {
	if _, err := os.Stat(filepath.Join(entryDir, stampName)); err != nil {
		return false
	}
	return isDir(filepath.Join(entryDir, "libtorch"))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fetchArchive(ctx context.Context, archiveURL string, mirror string, dest string) error {
	body, size, err := fetch(ctx, archiveURL, mirror)
	if err != nil {
		return err
	}
	defer body.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := copyWithProgress(out, body, size, "Downloading libtorch"); err != nil {
		return errors.Network("Failed to download "+archiveURL, err)
	}
	return nil
}

func copyWithProgress(w io.Writer, r io.Reader, size int64, desc string) (int64, error) {
	if size <= 0 || !console.IsTTY(os.Stderr) {
		return io.Copy(w, r)
	}
	p := mpb.New(mpb.WithWidth(60), mpb.WithOutput(os.Stderr))
	bar := p.New(size,
		mpb.BarStyle().Rbound("|"),
		mpb.PrependDecorators(
			decor.Name(desc+" "),
			decor.Counters(decor.SizeB1024(0), "% .2f / % .2f"),
		),
		mpb.AppendDecorators(
			decor.EwmaETA(decor.ET_STYLE_GO, 30),
			decor.Name(" ] "),
			decor.EwmaSpeed(decor.SizeB1024(0), "% .2f", 30),
		),
	)
	proxy := bar.ProxyReader(r)
	defer proxy.Close()
	n, err := io.Copy(w, proxy)
	p.Wait()
	return n, err
}
