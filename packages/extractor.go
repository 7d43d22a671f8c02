package packages

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ExtractTarGz unpacks archive into destDir, creating it if needed. Entries
// that would escape destDir (absolute paths or "..") are rejected.
func ExtractTarGz(archive, destDir string) error {
	f, err := os.Open(archive)
	if err != nil {
		return errors.Wrapf(err, "opening archive %s", archive)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "reading gzip header of %s", archive)
	}
	defer gz.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return errors.Wrapf(err, "creating extraction dir %s", destDir)
	}

	log.Infof("Extracting %s into %s", archive, destDir)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "reading archive %s", archive)
		}
		target, err := sanitizePath(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)); err != nil {
				return errors.Wrapf(err, "creating dir %s", target)
			}
		case tar.TypeReg:
			if err := extractFile(tr, target, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		case tar.TypeSymlink:
			// Links inside the archive are allowed; links escaping it are not.
			if _, err := sanitizePath(filepath.Dir(target), hdr.Linkname); err != nil {
				return err
			}
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return errors.Wrapf(err, "creating symlink %s", target)
			}
		default:
			log.Warnf("Skipping unsupported archive entry %s (type %v)", hdr.Name, hdr.Typeflag)
		}
	}
}

func extractFile(r io.Reader, target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrapf(err, "creating parent of %s", target)
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return errors.Wrapf(err, "creating %s", target)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return errors.Wrapf(err, "writing %s", target)
	}
	return nil
}

func sanitizePath(destDir, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("archive entry %q has an absolute path", name)
	}
	target := filepath.Join(destDir, name)
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) &&
		target != filepath.Clean(destDir) {
		return "", fmt.Errorf("archive entry %q escapes extraction dir", name)
	}
	return target, nil
}
