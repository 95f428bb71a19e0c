// Package lifecycle builds the step pipelines for the operations on a
// site: backup, restore, copy, promote, install, delete, and the
// provisioning of production servers.
//
// Everything a pipeline needs is worked out when it's built, from the
// names given and (for restore) the artifact chosen, so that a run can
// be resumed from any step without the earlier steps having run in the
// same process.
package lifecycle

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"

	"github.com/nwpdev/nwp/pkg/artifact"
	"github.com/nwpdev/nwp/pkg/command"
	"github.com/nwpdev/nwp/pkg/config"
	"github.com/nwpdev/nwp/pkg/ddev"
	"github.com/nwpdev/nwp/pkg/drush"
	"github.com/nwpdev/nwp/pkg/environment"
	nwperr "github.com/nwpdev/nwp/pkg/errors"
	"github.com/nwpdev/nwp/pkg/git"
	"github.com/nwpdev/nwp/pkg/mail"
	"github.com/nwpdev/nwp/pkg/pipeline"
	"github.com/nwpdev/nwp/pkg/provision"
	"github.com/nwpdev/nwp/pkg/registry"
	"github.com/nwpdev/nwp/pkg/sitefs"
)

// Host is the control host the operations run on, and the things on it
// they use.
type Host struct {
	Config   config.Config
	Registry *registry.Registry
	Store    *artifact.Store
	// Rooted at Config.SitesRoot
	Sites  billy.Filesystem
	Runner command.Runner

	// Only provisioning uses these.
	Provider provision.Provider
	Probe    provision.Probe

	// Long-running tool output and progress bars are written here; may
	// be nil.
	Progress io.Writer

	now func() time.Time
}

// NewHost returns a host using the directories in the configuration.
func NewHost(cfg config.Config, reg *registry.Registry, runner command.Runner) *Host {
	return &Host{
		Config:   cfg,
		Registry: reg,
		Store:    artifact.OpenStore(cfg.BackupRoot),
		Sites:    osfs.New(cfg.SitesRoot),
		Runner:   runner,
		Probe:    provision.SSHProbe,
		now:      time.Now,
	}
}

func (h *Host) clock() time.Time {
	if h.now == nil {
		return time.Now()
	}
	return h.now()
}

// site is an environment name resolved to where it lives.
type site struct {
	name string
	env  environment.Name
	// relative to Host.Sites
	dir string
	// the same, as an OS path for external tools
	path string
}

func (h *Host) site(name string) (site, error) {
	env := environment.Parse(name)
	if _, err := environment.Compose(env.Base, env.Kind); err != nil {
		return site{}, err
	}
	dir := name
	if entry, ok := h.Registry.Sites[name]; ok && entry.Directory != "" {
		dir = entry.Directory
		if filepath.IsAbs(dir) {
			rel, err := filepath.Rel(h.Config.SitesRoot, dir)
			if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				return site{}, nwperr.Errorf(nwperr.InvalidConfig, "site %s: directory %s is outside %s", name, dir, h.Config.SitesRoot)
			}
			dir = rel
		}
	}
	dir = filepath.ToSlash(filepath.Clean(dir))
	return site{
		name: name,
		env:  env,
		dir:  dir,
		path: filepath.Join(h.Config.SitesRoot, filepath.FromSlash(dir)),
	}, nil
}

func (h *Host) exists(s site) bool {
	return sitefs.Exists(h.Sites, s.dir)
}

func (h *Host) hasFile(s site, rel string) bool {
	return sitefs.Exists(h.Sites, path.Join(s.dir, rel))
}

func (h *Host) options(name string) registry.Options {
	if opts, err := h.Registry.Effective(name); err == nil {
		return opts
	}
	return registry.Options{Docroot: registry.DefaultDocroot}
}

func (h *Host) project(s site) *ddev.Project {
	p := ddev.NewProject(h.Runner, h.Config.DDEVBinary, s.path)
	p.Progress = h.Progress
	return p
}

func (h *Host) git() *git.Git {
	return git.New(h.Runner, h.Config.GitBinary)
}

func (h *Host) mail() *mail.Virtual {
	return mail.NewVirtual(h.Runner, h.Config.PostmapBinary, h.Config.MailVirtualPath)
}

func (h *Host) saveRegistry() error {
	return errors.Wrap(h.Registry.Save(), "saving registry")
}

func siteNotFound(s site) error {
	return &nwperr.Error{
		Kind: nwperr.NotRegistered,
		Err:  fmt.Errorf("site %s not found at %s", s.name, s.path),
		Help: fmt.Sprintf(`There is no site %s at

    %s

Use

    nwp list

to see the registered sites, or nwp install to create one.
`, s.name, s.path),
	}
}

func destinationMissing(s site, hint string) error {
	return &nwperr.Error{
		Kind: nwperr.DestinationMissing,
		Err:  fmt.Errorf("destination %s does not exist at %s", s.name, s.path),
		Help: fmt.Sprintf(`The destination site %s does not exist, and this operation only
changes an existing site. %s
`, s.name, hint),
	}
}

// Selection says how the artifact to restore is chosen: the latest, a
// position in the newest-first list, or by asking.
type Selection struct {
	Latest bool
	// 1-based; 0 means not given
	Index int
	In    io.Reader
	Out   io.Writer
}

// Select picks one artifact of a site.
func (h *Host) Select(siteName string, kind artifact.Kind, sel Selection) (artifact.Artifact, error) {
	switch {
	case sel.Latest:
		return h.Store.SelectLatest(siteName, kind)
	case sel.Index != 0:
		return h.Store.SelectIndex(siteName, kind, sel.Index)
	}
	return h.Store.SelectInteractive(siteName, kind, sel.In, sel.Out)
}

// Steps shared by several operations.

func (h *Host) clearCache(shell command.Shell) pipeline.Step {
	return pipeline.Step{
		Name:     "clear cache",
		NonFatal: true,
		Do: func(ctx context.Context, _ log.Logger) (string, error) {
			return "", drush.New(shell).CacheRebuild(ctx)
		},
	}
}

func (h *Host) loginLink(s site) pipeline.Step {
	return pipeline.Step{
		Name:     "login link",
		NonFatal: true,
		Do: func(ctx context.Context, _ log.Logger) (string, error) {
			return drush.New(h.project(s)).LoginLink(ctx)
		},
	}
}

func (h *Host) fixPermissions(s site) pipeline.Step {
	return pipeline.Step{
		Name: "set permissions",
		Do: func(context.Context, log.Logger) (string, error) {
			n, err := sitefs.FixPermissions(h.Sites, s.dir, h.options(s.name).Docroot)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d paths", n), nil
		},
	}
}
