package sitefs

import (
	"fmt"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	DefaultDocroot = "web"
	ddevConfig     = ".ddev/config.yaml"
)

func chmod(fs billy.Filesystem, name string, mode os.FileMode) error {
	ch, ok := fs.(billy.Change)
	if !ok {
		return fmt.Errorf("filesystem can't change permissions of %s", name)
	}
	return ch.Chmod(name, mode)
}

// FixPermissions puts right the permissions of the Drupal site under
// dir: the site settings directory and file are read-only to the web
// server, and the public files directory is group-writable throughout.
// Missing paths are left alone.
func FixPermissions(fs billy.Filesystem, dir, docroot string) (int, error) {
	if docroot == "" {
		docroot = DefaultDocroot
	}
	siteDir := path.Join(dir, docroot, "sites", "default")
	changed := 0
	for name, mode := range map[string]os.FileMode{
		siteDir:                            0755,
		path.Join(siteDir, "settings.php"): 0644,
	} {
		if !Exists(fs, name) {
			continue
		}
		if err := chmod(fs, name, mode); err != nil {
			return changed, err
		}
		changed++
	}

	filesDir := path.Join(siteDir, "files")
	if !Exists(fs, filesDir) {
		return changed, nil
	}
	if err := chmod(fs, filesDir, 0775); err != nil {
		return changed, err
	}
	changed++
	err := walk(fs, filesDir, "", func(rel string, info os.FileInfo) error {
		mode := os.FileMode(0664)
		switch {
		case info.IsDir():
			mode = 0775
		case !info.Mode().IsRegular():
			return nil
		}
		changed++
		return chmod(fs, path.Join(filesDir, rel), mode)
	})
	return changed, err
}

// ClearCompiledPHP removes the PHP Drupal compiles into the public
// files directory (twig templates and the like), which is keyed to the
// site it was compiled for.
func ClearCompiledPHP(fs billy.Filesystem, dir, docroot string) error {
	if docroot == "" {
		docroot = DefaultDocroot
	}
	return RemoveTree(fs, path.Join(dir, docroot, "sites", "default", "files", "php"))
}

// RenameDDEVProject sets the project name in the site's DDEV
// configuration, keeping everything else in the file as it was. It
// returns false if the site has no DDEV configuration.
func RenameDDEVProject(fs billy.Filesystem, dir, name string) (bool, error) {
	file := path.Join(dir, ddevConfig)
	bs, err := util.ReadFile(fs, file)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var doc yaml.MapSlice
	if err := yaml.Unmarshal(bs, &doc); err != nil {
		return false, errors.Wrapf(err, "parsing %s", file)
	}
	found := false
	for i := range doc {
		if doc[i].Key == "name" {
			doc[i].Value = name
			found = true
		}
	}
	if !found {
		doc = append(yaml.MapSlice{{Key: "name", Value: name}}, doc...)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return false, err
	}
	return true, util.WriteFile(fs, file, out, 0644)
}

// DDEVProjectName reads the project name from the site's DDEV
// configuration.
func DDEVProjectName(fs billy.Filesystem, dir string) (string, error) {
	bs, err := util.ReadFile(fs, path.Join(dir, ddevConfig))
	if err != nil {
		return "", err
	}
	var cfg struct {
		Name string `yaml:"name"`
	}
	if err := yaml.Unmarshal(bs, &cfg); err != nil {
		return "", err
	}
	return cfg.Name, nil
}
