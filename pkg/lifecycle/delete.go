package lifecycle

import (
	"context"
	"fmt"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"

	"github.com/nwpdev/nwp/pkg/artifact"
	"github.com/nwpdev/nwp/pkg/mail"
	"github.com/nwpdev/nwp/pkg/pipeline"
	"github.com/nwpdev/nwp/pkg/sitefs"
)

type DeleteRequest struct {
	Site string
	// Skip the backup taken before anything is removed
	NoBackup bool
}

// Delete builds the pipeline that removes a site: its environment, its
// files, its registry entry and its mail alias. Its backups are kept.
func (h *Host) Delete(req DeleteRequest) (*pipeline.Pipeline, error) {
	s, err := h.site(req.Site)
	if err != nil {
		return nil, err
	}
	if !h.exists(s) && !h.Registry.Has(s.name) {
		return nil, siteNotFound(s)
	}

	steps := []pipeline.Step{{
		Name: "confirm deletion",
		Gate: fmt.Sprintf("Delete %s and everything in %s?", s.name, s.path),
	}}
	if !req.NoBackup {
		a := artifact.New(s.name, h.clock(), artifact.Full, "pre-delete")
		steps = append(steps, pipeline.Step{
			Name: "backup before delete",
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				if !h.exists(s) {
					return "no files to back up", nil
				}
				if h.Store.Exists(a) {
					return "", errors.Errorf("backup %s of %s already exists", a.ID, s.name)
				}
				if err := h.Store.Prepare(a); err != nil {
					return "", err
				}
				if _, err := h.archiveFiles(s, a); err != nil {
					return "", err
				}
				if _, err := h.exportDatabase(ctx, s, a); err != nil {
					return "", err
				}
				if _, err := h.writeManifest(a); err != nil {
					return "", err
				}
				return a.ID, nil
			},
		})
	}
	steps = append(steps,
		pipeline.Step{
			Name: "remove environment",
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				if !h.hasFile(s, ".ddev/config.yaml") {
					return "no environment", nil
				}
				return "", h.project(s).Delete(ctx)
			},
		},
		pipeline.Step{
			Name: "remove files",
			Do: func(context.Context, log.Logger) (string, error) {
				return s.path, errors.Wrapf(sitefs.RemoveTree(h.Sites, s.dir), "removing %s", s.path)
			},
		},
		pipeline.Step{
			Name: "unregister site",
			Do: func(context.Context, log.Logger) (string, error) {
				if !h.Registry.Has(s.name) {
					return "not registered", nil
				}
				h.Registry.Unregister(s.name)
				return "", h.saveRegistry()
			},
		},
		pipeline.Step{
			Name:     "remove mail alias",
			NonFatal: true,
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				if h.Config.MailDomain == "" {
					return "no mail domain configured", nil
				}
				address := mail.SiteAddress(s.name, h.Config.MailDomain)
				return address, h.mail().Remove(ctx, address)
			},
		},
	)
	return pipeline.New("delete", steps...)
}
