package sitefs

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Archive writes the tree under dir to w as a gzipped tarball, leaving
// out paths matching the exclusions. It returns the number of files
// written.
func Archive(fs billy.Filesystem, dir string, w io.Writer, exclude []string) (int, error) {
	zw := gzip.NewWriter(w)
	tw := tar.NewWriter(zw)
	count := 0

	err := walk(fs, dir, "", func(rel string, info os.FileInfo) error {
		if Excluded(rel, exclude) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		var link string
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := fs.Readlink(path.Join(dir, rel))
			if err != nil {
				return err
			}
			link = target
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = rel
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		f, err := fs.Open(path.Join(dir, rel))
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return errors.Wrapf(err, "archiving %s", rel)
		}
		count++
		return nil
	})
	if err != nil {
		return count, err
	}
	if err := tw.Close(); err != nil {
		return count, err
	}
	return count, zw.Close()
}

// Extract unpacks a tarball written by Archive into dir, creating it if
// need be. Entries that would land outside dir are refused.
func Extract(r io.Reader, fs billy.Filesystem, dir string) (int, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return 0, errors.Wrap(err, "reading archive")
	}
	defer zr.Close()
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}

	tr := tar.NewReader(zr)
	count := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, errors.Wrap(err, "reading archive")
		}
		rel := path.Clean(strings.TrimSuffix(hdr.Name, "/"))
		if rel == "." || path.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, "../") {
			return count, fmt.Errorf("archive entry %q is outside the site", hdr.Name)
		}
		target := path.Join(dir, rel)
		mode := os.FileMode(hdr.Mode).Perm()

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := fs.MkdirAll(target, mode|0700); err != nil {
				return count, err
			}
		case tar.TypeSymlink:
			fs.Remove(target)
			if err := fs.Symlink(hdr.Linkname, target); err != nil {
				return count, err
			}
		case tar.TypeReg:
			f, err := fs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
			if err != nil {
				return count, err
			}
			_, err = io.Copy(f, tr)
			f.Close()
			if err != nil {
				return count, errors.Wrapf(err, "extracting %s", rel)
			}
			count++
		}
	}
}
