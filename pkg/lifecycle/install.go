package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-kit/kit/log"

	"github.com/nwpdev/nwp/pkg/composer"
	"github.com/nwpdev/nwp/pkg/ddev"
	"github.com/nwpdev/nwp/pkg/drush"
	nwperr "github.com/nwpdev/nwp/pkg/errors"
	"github.com/nwpdev/nwp/pkg/git"
	"github.com/nwpdev/nwp/pkg/mail"
	"github.com/nwpdev/nwp/pkg/pipeline"
	"github.com/nwpdev/nwp/pkg/registry"
)

// The DDEV project type sites are configured with.
const projectType = "drupal"

const defaultProfile = "standard"

const drushPackage = "drush/drush"

type InstallRequest struct {
	Recipe string
	Site   string
	Open   bool
}

// Install builds the pipeline that makes a new site from a recipe.
func (h *Host) Install(req InstallRequest) (*pipeline.Pipeline, error) {
	rec, err := h.Registry.Recipe(req.Recipe)
	if err != nil {
		return nil, err
	}
	s, err := h.site(req.Site)
	if err != nil {
		return nil, err
	}
	if h.Registry.Has(s.name) {
		return nil, nwperr.Errorf(nwperr.InvalidName, "site %s is already registered", s.name)
	}

	opts := rec.Options
	if opts.Docroot == "" {
		opts.Docroot = registry.DefaultDocroot
	}
	if opts.Profile == "" {
		opts.Profile = defaultProfile
	}

	steps := []pipeline.Step{
		{
			Name: "validate recipe",
			Do: func(context.Context, log.Logger) (string, error) {
				if h.exists(s) {
					return "", nwperr.Errorf(nwperr.InvalidName, "%s already exists; delete it or choose another name", s.path)
				}
				switch rec.Source {
				case registry.SourceGit:
					return fmt.Sprintf("%s from %s", req.Recipe, git.Remote{URL: rec.Git}.SafeURL()), nil
				default:
					return fmt.Sprintf("%s from %s", req.Recipe, h.composerProject(rec)), nil
				}
			},
		},
		{
			Name: "create site directory",
			Do: func(context.Context, log.Logger) (string, error) {
				return s.path, h.Sites.MkdirAll(s.dir, 0755)
			},
		},
		{
			Name: "configure environment",
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				return "project " + s.name, h.project(s).Configure(ctx, ddev.Config{
					Name:       s.name,
					Type:       projectType,
					Docroot:    opts.Docroot,
					PHPVersion: opts.PHP,
					Database:   opts.Database,
				})
			},
		},
		{
			Name: "start environment",
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				return "", h.project(s).Start(ctx)
			},
		},
		{
			Name: "fetch codebase",
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				c := composer.New(h.project(s))
				if rec.Source == registry.SourceGit {
					if err := h.git().Checkout(ctx, git.Remote{URL: rec.Git}, rec.Branch, s.path); err != nil {
						return "", err
					}
					return "git " + rec.Branch, c.Install(ctx, false)
				}
				project := h.composerProject(rec)
				if err := c.Create(ctx, project); err != nil {
					return "", err
				}
				// project templates leave drush out
				return project, c.Require(ctx, drushPackage)
			},
		},
		{
			Name: "install site",
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				return opts.Profile, drush.New(h.project(s)).SiteInstall(ctx, drush.InstallOptions{
					Profile:   opts.Profile,
					SiteName:  s.name,
					AdminUser: "admin",
					Email:     h.siteEmail(s),
				})
			},
		},
		{
			Name: "enable modules",
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				if len(opts.Modules) == 0 {
					return "none configured", nil
				}
				return strings.Join(opts.Modules, ", "), drush.New(h.project(s)).Enable(ctx, opts.Modules...)
			},
		},
		{
			Name: "register site",
			Do: func(context.Context, log.Logger) (string, error) {
				if err := h.Registry.Register(s.name, registry.Site{Recipe: req.Recipe}); err != nil {
					return "", err
				}
				return h.Registry.Path(), h.saveRegistry()
			},
		},
		{
			Name:     "add mail alias",
			NonFatal: true,
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				if h.Config.MailDomain == "" {
					return "no mail domain configured", nil
				}
				address := mail.SiteAddress(s.name, h.Config.MailDomain)
				return address, h.mail().Set(ctx, address, h.Config.MailForward)
			},
		},
	}
	if req.Open {
		steps = append(steps, h.loginLink(s))
	}
	return pipeline.New("install", steps...)
}

func (h *Host) composerProject(rec registry.Recipe) string {
	if rec.Project != "" {
		return rec.Project
	}
	return h.Config.ComposerPackage
}

func (h *Host) siteEmail(s site) string {
	if h.Config.MailDomain == "" {
		return ""
	}
	return mail.SiteAddress(s.name, h.Config.MailDomain)
}
