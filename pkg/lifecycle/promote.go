package lifecycle

import (
	"context"
	"fmt"

	"github.com/go-kit/kit/log"

	"github.com/nwpdev/nwp/pkg/command"
	"github.com/nwpdev/nwp/pkg/composer"
	"github.com/nwpdev/nwp/pkg/drush"
	"github.com/nwpdev/nwp/pkg/environment"
	nwperr "github.com/nwpdev/nwp/pkg/errors"
	"github.com/nwpdev/nwp/pkg/pipeline"
	"github.com/nwpdev/nwp/pkg/sitefs"
	"github.com/nwpdev/nwp/pkg/ssh"
)

type PromoteRequest struct {
	// A dev or staging environment name; it's promoted to the next
	// environment along.
	Site string
	Open bool
}

// destination is where a promotion goes: a local site, or the
// production server.
type destination struct {
	site
	// nil for a local destination
	remote *ssh.Target
	domain string
}

func (d destination) shell(h *Host) command.Shell {
	if d.remote != nil {
		return ssh.NewRemote(h.Runner, h.Config.SSHBinary, *d.remote)
	}
	return h.project(d.site)
}

// Promote builds the pipeline that moves a site's code and
// configuration up one environment: dev to staging, or staging to
// production. The destination's content (database, uploaded files) is
// left alone.
func (h *Host) Promote(req PromoteRequest) (*pipeline.Pipeline, error) {
	from, err := h.site(req.Site)
	if err != nil {
		return nil, err
	}
	next, err := environment.Next(from.env.Kind)
	if err != nil {
		return nil, err
	}
	toName, err := environment.Compose(from.env.Base, next)
	if err != nil {
		return nil, err
	}
	toSite, err := h.site(toName)
	if err != nil {
		return nil, err
	}
	to := destination{site: toSite}
	if next == environment.Production {
		target, domain, err := h.productionTarget(toName)
		if err != nil {
			return nil, err
		}
		to.remote, to.domain = &target, domain
	}

	opts := h.options(from.name)
	exclude := append(append([]string{}, h.Config.PromoteExclude...), opts.PromoteExclude...)
	reinstall := opts.ReinstallModules
	if h.Registry.Has(to.name) {
		reinstall = h.options(to.name).ReinstallModules
	}

	steps := []pipeline.Step{
		{
			Name: "validate environments",
			Do: func(context.Context, log.Logger) (string, error) {
				if !h.exists(from) {
					return "", siteNotFound(from)
				}
				if to.remote != nil {
					return fmt.Sprintf("%s -> %s", from.name, to.remote), nil
				}
				if !h.exists(to.site) {
					return "", destinationMissing(to.site, fmt.Sprintf("Make it from %s first:\n\n    nwp copy %s %s\n", from.name, from.name, to.name))
				}
				return fmt.Sprintf("%s -> %s", from.name, to.name), nil
			},
		},
		{
			Name: "export configuration",
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				return "", drush.New(h.project(from)).ConfigExport(ctx)
			},
		},
		{
			Name: "sync files",
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				if to.remote != nil {
					rsync := ssh.NewRsync(h.Runner, h.Config.RsyncBinary, h.Config.SSHBinary)
					return to.remote.String(), rsync.Push(ctx, from.path, *to.remote, exclude)
				}
				stats, err := sitefs.Sync(h.Sites, from.dir, h.Sites, to.dir, exclude)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%d copied, %d unchanged, %d deleted", stats.Copied, stats.Unchanged, stats.Deleted), nil
			},
		},
		{
			Name: "install dependencies",
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				return "production mode", composer.New(to.shell(h)).Install(ctx, true)
			},
		},
		{
			Name: "run database updates",
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				return "", drush.New(to.shell(h)).UpdateDB(ctx)
			},
		},
		{
			Name: "import configuration",
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				return "", drush.New(to.shell(h)).ConfigImport(ctx)
			},
		},
		{
			Name: "reinstall modules",
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				if len(reinstall) == 0 {
					return "none configured", nil
				}
				d := drush.New(to.shell(h))
				if err := d.Uninstall(ctx, reinstall...); err != nil {
					return "", err
				}
				if err := d.Enable(ctx, reinstall...); err != nil {
					return "", err
				}
				return fmt.Sprintf("%d modules", len(reinstall)), nil
			},
		},
		h.clearCache(to.shell(h)),
		{
			Name: "report destination URL",
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				return h.destinationURL(ctx, to)
			},
		},
	}
	if req.Open {
		steps = append(steps, pipeline.Step{
			Name:     "login link",
			NonFatal: true,
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				return drush.New(to.shell(h)).LoginLink(ctx)
			},
		})
	}
	return pipeline.New("promote", steps...)
}

// productionTarget gives where the production environment of a site
// lives, from its registry entry.
func (h *Host) productionTarget(name string) (ssh.Target, string, error) {
	entry, err := h.Registry.Site(name)
	if err != nil || entry.Production == nil || entry.Production.Address == "" {
		base := environment.Parse(name).Base
		return ssh.Target{}, "", &nwperr.Error{
			Kind: nwperr.NotRegistered,
			Err:  fmt.Errorf("no production server recorded for %s", name),
			Help: fmt.Sprintf(`There is no production server recorded for %s. Create one with

    nwp provision %s

or add a production block with its address to the registry entry for
%s.
`, base, base, name),
		}
	}
	p := entry.Production
	target := ssh.Target{
		User: p.User,
		Host: p.Address,
		Port: p.Port,
		Path: p.Path,
	}
	if target.Path == "" {
		target.Path = defaultRemotePath(environment.Parse(name).Base)
	}
	return target, p.Domain, nil
}

func defaultRemotePath(base string) string {
	return "/var/www/" + base
}

func (h *Host) destinationURL(ctx context.Context, to destination) (string, error) {
	if to.remote != nil {
		if to.domain != "" {
			return "https://" + to.domain, nil
		}
		return "http://" + to.remote.Host, nil
	}
	desc, err := h.project(to.site).Describe(ctx)
	if err != nil {
		return "", err
	}
	if desc.PrimaryURL == "" {
		return "https://" + to.name + ".ddev.site", nil
	}
	return desc.PrimaryURL, nil
}
