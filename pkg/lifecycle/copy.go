package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nwpdev/nwp/pkg/composer"
	"github.com/nwpdev/nwp/pkg/ddev"
	nwperr "github.com/nwpdev/nwp/pkg/errors"
	"github.com/nwpdev/nwp/pkg/pipeline"
	"github.com/nwpdev/nwp/pkg/sitefs"
)

type CopyRequest struct {
	From string
	To   string
	// Copy the files only, leaving the destination without the source's
	// database.
	FilesOnly bool
	Open      bool
}

// Copy builds the pipeline that makes To a fresh copy of From.
func (h *Host) Copy(req CopyRequest) (*pipeline.Pipeline, error) {
	from, err := h.site(req.From)
	if err != nil {
		return nil, err
	}
	to, err := h.site(req.To)
	if err != nil {
		return nil, err
	}
	if from.dir == to.dir {
		return nil, nwperr.Errorf(nwperr.InvalidName, "can't copy %s onto itself", from.name)
	}

	gate := fmt.Sprintf("Create %s as a copy of %s?", to.name, from.name)
	if h.exists(to) {
		gate = fmt.Sprintf("%s exists. Delete it and recreate it as a copy of %s?", to.name, from.name)
	}

	steps := []pipeline.Step{
		{
			Name: "validate source",
			Do: func(context.Context, log.Logger) (string, error) {
				if !h.exists(from) {
					return "", siteNotFound(from)
				}
				return from.path, nil
			},
		},
		{
			Name: "confirm destination recreation",
			Gate: gate,
			Do: func(ctx context.Context, logger log.Logger) (string, error) {
				return h.removeDestination(ctx, logger, to)
			},
		},
		{
			Name: "clone files",
			Do: func(context.Context, log.Logger) (string, error) {
				n, err := sitefs.CopyTree(h.Sites, from.dir, h.Sites, to.dir, h.Progress)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%d files", n), nil
			},
		},
		{
			Name: "configure destination environment",
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				return h.configureCopy(ctx, from, to)
			},
		},
		{
			Name: "install dependencies",
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				return "", composer.New(h.project(to)).Install(ctx, false)
			},
		},
	}
	if !req.FilesOnly {
		steps = append(steps, pipeline.Step{
			Name: "import database",
			Do: func(ctx context.Context, logger log.Logger) (string, error) {
				return h.copyDatabase(ctx, logger, from, to)
			},
		})
	}
	steps = append(steps,
		pipeline.Step{
			Name: "fix settings",
			Do: func(context.Context, log.Logger) (string, error) {
				return h.fixSettings(from, to)
			},
		},
		h.fixPermissions(to),
		h.clearCache(h.project(to)),
	)
	if req.Open {
		steps = append(steps, h.loginLink(to))
	}
	return pipeline.New("copy", steps...)
}

// removeDestination takes down the destination's environment and files,
// if there are any.
func (h *Host) removeDestination(ctx context.Context, logger log.Logger, to site) (string, error) {
	if !h.exists(to) {
		return "nothing to remove", nil
	}
	if h.hasFile(to, ".ddev/config.yaml") {
		if err := h.project(to).Delete(ctx); err != nil {
			level.Warn(logger).Log("msg", "could not remove environment", "site", to.name, "err", err)
		}
	}
	if err := sitefs.RemoveTree(h.Sites, to.dir); err != nil {
		return "", errors.Wrapf(err, "removing %s", to.path)
	}
	return "removed " + to.path, nil
}

// configureCopy points the copied DDEV configuration at the new site,
// or makes one if the source didn't have any, and starts it.
func (h *Host) configureCopy(ctx context.Context, from, to site) (string, error) {
	p := h.project(to)
	renamed, err := sitefs.RenameDDEVProject(h.Sites, to.dir, to.name)
	if err != nil {
		return "", err
	}
	if !renamed {
		opts := h.options(from.name)
		if err := p.Configure(ctx, ddev.Config{
			Name:       to.name,
			Type:       projectType,
			Docroot:    opts.Docroot,
			PHPVersion: opts.PHP,
			Database:   opts.Database,
		}); err != nil {
			return "", err
		}
	}
	if err := p.Start(ctx); err != nil {
		return "", err
	}
	return "project " + to.name, nil
}

// copyDatabase moves the source's database into the destination by way
// of a dump in a temporary file.
func (h *Host) copyDatabase(ctx context.Context, logger log.Logger, from, to site) (string, error) {
	dump := filepath.Join(os.TempDir(), fmt.Sprintf("nwp-%s-%s.sql.gz", from.name, uuid.New().String()))
	defer func() {
		if err := os.Remove(dump); err != nil && !os.IsNotExist(err) {
			level.Warn(logger).Log("msg", "could not remove database dump", "file", dump, "err", err)
		}
	}()
	if err := h.project(from).ExportDB(ctx, dump); err != nil {
		return "", err
	}
	if err := h.project(to).ImportDB(ctx, dump); err != nil {
		return "", err
	}
	return "from " + from.name, nil
}
