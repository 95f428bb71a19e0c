// Package sitefs works on site directory trees: archiving them into
// backups, extracting them back, copying and syncing between sites, and
// putting right the files a copied site needs changed.
//
// Every function takes a filesystem and a directory in it; paths passed
// around inside are relative to that directory and slash-separated.
package sitefs

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ryanuber/go-glob"
)

type walkFunc func(rel string, info os.FileInfo) error

// walk calls fn for everything under dir, parents before children, in
// name order. If fn returns filepath.SkipDir for a directory, its
// contents are skipped.
func walk(fs billy.Filesystem, dir, rel string, fn walkFunc) error {
	infos, err := fs.ReadDir(path.Join(dir, rel))
	if err != nil {
		return err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	for _, info := range infos {
		r := path.Join(rel, info.Name())
		err := fn(r, info)
		if err == filepath.SkipDir {
			continue
		}
		if err != nil {
			return err
		}
		if info.IsDir() {
			if err := walk(fs, dir, r, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Exists says whether dir exists in the filesystem.
func Exists(fs billy.Filesystem, dir string) bool {
	_, err := fs.Stat(dir)
	return err == nil
}

// RemoveTree removes dir and everything in it. It's not an error for dir
// not to exist.
func RemoveTree(fs billy.Filesystem, dir string) error {
	if !Exists(fs, dir) {
		return nil
	}
	return util.RemoveAll(fs, dir)
}

// Excluded says whether a relative path matches one of the patterns, or
// is inside a directory that does. Patterns use * as a wildcard, which
// matches across slashes.
func Excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		p = strings.Trim(p, "/")
		if glob.Glob(p, rel) || glob.Glob(p+"/*", rel) {
			return true
		}
	}
	return false
}
