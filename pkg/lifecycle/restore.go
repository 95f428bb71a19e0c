package lifecycle

import (
	"context"
	"fmt"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"

	"github.com/nwpdev/nwp/pkg/artifact"
	"github.com/nwpdev/nwp/pkg/composer"
	"github.com/nwpdev/nwp/pkg/pipeline"
	"github.com/nwpdev/nwp/pkg/registry"
	"github.com/nwpdev/nwp/pkg/sitefs"
)

type RestoreRequest struct {
	// The site whose backups are chosen from
	From string
	// The site restored into; if empty, From
	To           string
	DatabaseOnly bool
	Select       Selection
	Open         bool
}

// Restore builds the pipeline that puts a backup of From in place at
// To. The artifact is chosen while building, so a database-only restore
// to a site that doesn't exist fails before anything is asked or
// changed.
func (h *Host) Restore(req RestoreRequest) (*pipeline.Pipeline, error) {
	if req.To == "" {
		req.To = req.From
	}
	from, err := h.site(req.From)
	if err != nil {
		return nil, err
	}
	to, err := h.site(req.To)
	if err != nil {
		return nil, err
	}

	kind := artifact.Full
	if req.DatabaseOnly {
		kind = artifact.DatabaseOnly
		if !h.exists(to) {
			return nil, destinationMissing(to, fmt.Sprintf("Restore a full backup to create it:\n\n    nwp restore %s %s\n", from.name, to.name))
		}
	}
	a, err := h.Select(from.name, kind, req.Select)
	if err != nil {
		return nil, err
	}

	steps := []pipeline.Step{
		{
			Name: "select artifact",
			Do: func(_ context.Context, logger log.Logger) (string, error) {
				return h.verify(logger, a)
			},
		},
		{
			Name: "confirm overwrite",
			Gate: fmt.Sprintf("Overwrite %s with backup %s of %s?", to.name, a.ID, from.name),
		},
	}

	if kind == artifact.DatabaseOnly {
		steps = append(steps, h.importDatabase(to, "import database", h.Store.Path(a.Database)))
	} else {
		steps = append(steps,
			pipeline.Step{
				Name: "restore files",
				Do: func(ctx context.Context, logger log.Logger) (string, error) {
					return h.restoreFiles(ctx, logger, to, a)
				},
			},
			pipeline.Step{
				Name: "install dependencies",
				Do: func(ctx context.Context, _ log.Logger) (string, error) {
					p := h.project(to)
					if err := p.Start(ctx); err != nil {
						return "", err
					}
					return "", composer.New(p).Install(ctx, false)
				},
			},
			pipeline.Step{
				Name: "fix destination settings",
				Do: func(context.Context, log.Logger) (string, error) {
					return h.fixSettings(from, to)
				},
			},
			h.fixPermissions(to),
			h.importDatabase(to, "restore database", h.Store.Path(a.Database)),
		)
	}

	steps = append(steps, h.clearCache(h.project(to)))
	if req.Open {
		steps = append(steps, h.loginLink(to))
	}
	return pipeline.New("restore", steps...)
}

func (h *Host) restoreFiles(ctx context.Context, logger log.Logger, to site, a artifact.Artifact) (string, error) {
	if h.hasFile(to, ".ddev/config.yaml") {
		// the containers have the tree mounted
		if err := h.project(to).Stop(ctx); err != nil {
			level.Warn(logger).Log("msg", "could not stop environment before replacing files", "err", err)
		}
	}
	if err := sitefs.RemoveTree(h.Sites, to.dir); err != nil {
		return "", errors.Wrapf(err, "removing %s", to.path)
	}
	f, err := h.Store.Filesystem().Open(a.Files)
	if err != nil {
		return "", errors.Wrap(err, "opening files archive")
	}
	defer f.Close()
	n, err := sitefs.Extract(f, h.Sites, to.dir)
	if err != nil {
		return "", errors.Wrapf(err, "extracting %s", a.Files)
	}
	// the tree carries the name of the site it was backed up from
	if _, err := sitefs.RenameDDEVProject(h.Sites, to.dir, to.name); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d files", n), nil
}

// fixSettings makes a tree copied from one site fit for another: the
// DDEV project takes the destination's name, compiled PHP is thrown
// away, and the destination is registered like its source.
func (h *Host) fixSettings(from, to site) (string, error) {
	renamed, err := sitefs.RenameDDEVProject(h.Sites, to.dir, to.name)
	if err != nil {
		return "", err
	}
	if err := sitefs.ClearCompiledPHP(h.Sites, to.dir, h.options(to.name).Docroot); err != nil {
		return "", err
	}
	detail := "project " + to.name
	if !renamed {
		detail = "no DDEV configuration"
	}
	if from.name == to.name || h.Registry.Has(to.name) {
		return detail, nil
	}
	entry := registry.Site{}
	if src, err := h.Registry.Site(from.name); err == nil {
		entry.Recipe = src.Recipe
		entry.Options = src.Options
	}
	if err := h.Registry.Register(to.name, entry); err != nil {
		return "", err
	}
	if err := h.saveRegistry(); err != nil {
		return "", err
	}
	return detail + ", registered", nil
}

func (h *Host) importDatabase(to site, name, dump string) pipeline.Step {
	return pipeline.Step{
		Name: name,
		Do: func(ctx context.Context, _ log.Logger) (string, error) {
			p := h.project(to)
			if err := p.Start(ctx); err != nil {
				return "", err
			}
			if err := p.ImportDB(ctx, dump); err != nil {
				return "", err
			}
			return dump, nil
		},
	}
}
