package sitefs

import (
	"bytes"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/cheggaaa/pb/v3"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pkg/errors"
)

// CopyTree copies everything under srcDir to dstDir, which must not
// exist yet. If progress is not nil, a progress bar is drawn on it.
func CopyTree(src billy.Filesystem, srcDir string, dst billy.Filesystem, dstDir string, progress io.Writer) (int, error) {
	if Exists(dst, dstDir) {
		return 0, errors.Errorf("%s already exists", dstDir)
	}

	var bar *pb.ProgressBar
	if progress != nil {
		total := 0
		walk(src, srcDir, "", func(rel string, info os.FileInfo) error {
			if !info.IsDir() {
				total++
			}
			return nil
		})
		bar = pb.New(total)
		bar.SetTemplateString(`Copying files {{counters . }} {{bar . }} {{percent . }} {{etime . "%s"}}`)
		bar.SetWriter(progress)
		bar.Start()
		defer bar.Finish()
	}

	if err := dst.MkdirAll(dstDir, 0755); err != nil {
		return 0, err
	}
	count := 0
	err := walk(src, srcDir, "", func(rel string, info os.FileInfo) error {
		if err := copyEntry(src, path.Join(srcDir, rel), dst, path.Join(dstDir, rel), info); err != nil {
			return err
		}
		if !info.IsDir() {
			count++
			if bar != nil {
				bar.Increment()
			}
		}
		return nil
	})
	return count, err
}

func copyEntry(src billy.Filesystem, from string, dst billy.Filesystem, to string, info os.FileInfo) error {
	switch {
	case info.IsDir():
		return dst.MkdirAll(to, info.Mode().Perm()|0700)
	case info.Mode()&os.ModeSymlink != 0:
		target, err := src.Readlink(from)
		if err != nil {
			return err
		}
		if err := dst.Remove(to); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "replacing %s", to)
		}
		return dst.Symlink(target, to)
	case info.Mode().IsRegular():
		in, err := src.Open(from)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := dst.OpenFile(to, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			return errors.Wrapf(err, "copying %s", from)
		}
		return out.Close()
	}
	return nil
}

// SyncStats counts what a sync did.
type SyncStats struct {
	Copied    int
	Unchanged int
	Deleted   int
}

// Sync makes the tree under dstDir match the one under srcDir. Paths
// matching the exclusions are neither copied nor deleted, on either
// side.
func Sync(src billy.Filesystem, srcDir string, dst billy.Filesystem, dstDir string, exclude []string) (SyncStats, error) {
	var stats SyncStats
	if err := dst.MkdirAll(dstDir, 0755); err != nil {
		return stats, err
	}

	wanted := map[string]bool{}
	err := walk(src, srcDir, "", func(rel string, info os.FileInfo) error {
		if Excluded(rel, exclude) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		wanted[rel] = true
		to := path.Join(dstDir, rel)
		if info.Mode().IsRegular() {
			same, err := sameFile(src, path.Join(srcDir, rel), dst, to, info)
			if err != nil {
				return err
			}
			if same {
				stats.Unchanged++
				return nil
			}
			stats.Copied++
		}
		if existing, err := dst.Lstat(to); err == nil && existing.IsDir() != info.IsDir() {
			if err := util.RemoveAll(dst, to); err != nil {
				return err
			}
		}
		return copyEntry(src, path.Join(srcDir, rel), dst, to, info)
	})
	if err != nil {
		return stats, err
	}

	var extraneous []string
	err = walk(dst, dstDir, "", func(rel string, info os.FileInfo) error {
		if Excluded(rel, exclude) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !wanted[rel] {
			extraneous = append(extraneous, rel)
			if info.IsDir() {
				return filepath.SkipDir
			}
		}
		return nil
	})
	if err != nil {
		return stats, err
	}
	for _, rel := range extraneous {
		if err := util.RemoveAll(dst, path.Join(dstDir, rel)); err != nil {
			return stats, err
		}
		stats.Deleted++
	}
	return stats, nil
}

func sameFile(src billy.Filesystem, from string, dst billy.Filesystem, to string, info os.FileInfo) (bool, error) {
	existing, err := dst.Lstat(to)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !existing.Mode().IsRegular() || existing.Size() != info.Size() {
		return false, nil
	}
	a, err := util.ReadFile(src, from)
	if err != nil {
		return false, err
	}
	b, err := util.ReadFile(dst, to)
	if err != nil {
		return false, err
	}
	return bytes.Equal(a, b), nil
}
