package source

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"assertscan/pkg/errors"
)

// downloadAndExtract fetches an archive and unpacks it into an
// "extracted" subdirectory of workspace. Only gzipped tarballs and zip
// files are supported; anything else is an UNSUPPORTED_FORMAT error.
func (a *Acquirer) downloadAndExtract(ctx context.Context, archiveURL, workspace string) (string, error) {
	fileName := path.Base(archiveURL)
	filePath := filepath.Join(workspace, fileName)

	if err := a.download(ctx, archiveURL, filePath); err != nil {
		return "", errors.Wrap(errors.ErrCodeAcquisition, err, "download %s", archiveURL)
	}

	extractDir := filepath.Join(workspace, "extracted")
	if err := os.MkdirAll(extractDir, 0755); err != nil {
		return "", errors.Wrap(errors.ErrCodeAcquisition, err, "create extraction dir")
	}

	switch {
	case strings.HasSuffix(fileName, ".tar.gz"), strings.HasSuffix(fileName, ".tgz"):
		if err := extractTarGz(filePath, extractDir); err != nil {
			return "", errors.Wrap(errors.ErrCodeAcquisition, err, "extract %s", fileName)
		}
	case strings.HasSuffix(fileName, ".zip"):
		if err := extractZip(filePath, extractDir); err != nil {
			return "", errors.Wrap(errors.ErrCodeAcquisition, err, "extract %s", fileName)
		}
	default:
		return "", errors.New(errors.ErrCodeUnsupportedFormat, "unsupported archive format: %s", fileName)
	}

	return extractDir, nil
}

// download fetches url into dest, failing on any non-200 response.
func (a *Acquirer) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

// extractTarGz unpacks a gzipped tarball into destDir.
func extractTarGz(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target, err := secureJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		default:
			// Symlinks and other entry types are skipped; the scanner
			// only needs regular source files.
		}
	}
}

// extractZip unpacks a zip file into destDir.
func extractZip(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, entry := range zr.File {
		target, err := secureJoin(destDir, entry.Name)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return err
		}
		err = writeFile(target, rc, entry.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// secureJoin joins an archive entry name onto destDir, rejecting names
// that would escape it.
func secureJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes destination: %s", name)
	}
	return target, nil
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, r)
	return err
}
