package lifecycle

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"

	"github.com/nwpdev/nwp/pkg/artifact"
	"github.com/nwpdev/nwp/pkg/pipeline"
	"github.com/nwpdev/nwp/pkg/sitefs"
)

// Left out of file archives: DDEV's own snapshots, and PHP compiled
// for the site, which is rebuilt on demand.
var backupExclude = []string{
	".ddev/db_snapshots",
	"*/sites/*/files/php",
}

type BackupRequest struct {
	Site         string
	DatabaseOnly bool
	// Free text to label the backup with. If empty, and the site is a
	// git checkout, the branch and revision are used.
	Message string
	// Resume carries on with the newest artifact of the kind that a
	// failed backup left without a manifest, rather than starting a new
	// one. Used when a run starts part way through.
	Resume bool
}

// Backup builds the pipeline that writes a new artifact for a site.
func (h *Host) Backup(ctx context.Context, req BackupRequest) (*pipeline.Pipeline, error) {
	s, err := h.site(req.Site)
	if err != nil {
		return nil, err
	}
	kind := artifact.Full
	if req.DatabaseOnly {
		kind = artifact.DatabaseOnly
	}
	label := req.Message
	if label == "" && h.hasFile(s, ".git") {
		label = h.git().Describe(ctx, s.path)
	}
	built := h.clock()
	a := artifact.New(s.name, built, kind, label)
	if req.Resume {
		prev, ok, err := h.Store.Unfinished(s.name, kind)
		if err != nil {
			return nil, err
		}
		if ok {
			a = prev
		}
	}

	steps := []pipeline.Step{{
		Name: "validate site",
		Do: func(context.Context, log.Logger) (string, error) {
			if !h.exists(s) {
				return "", siteNotFound(s)
			}
			if h.Store.Exists(a) {
				return "", errors.Errorf("backup %s of %s already exists", a.ID, s.name)
			}
			return s.path, h.Store.Prepare(a)
		},
	}}
	if kind == artifact.Full {
		steps = append(steps, pipeline.Step{
			Name: "archive files",
			Do: func(context.Context, log.Logger) (string, error) {
				return h.archiveFiles(s, a)
			},
		})
	}
	steps = append(steps,
		pipeline.Step{
			Name: "export database",
			Do: func(ctx context.Context, _ log.Logger) (string, error) {
				return h.exportDatabase(ctx, s, a)
			},
		},
		pipeline.Step{
			Name: "write manifest",
			Do: func(context.Context, log.Logger) (string, error) {
				return h.writeManifest(a)
			},
		},
		pipeline.Step{
			Name: "report",
			Do: func(context.Context, log.Logger) (string, error) {
				size, err := h.Store.Size(a)
				if err != nil {
					return "", err
				}
				took := h.clock().Sub(built).Round(time.Second)
				return fmt.Sprintf("%s, %s in %s", a.ID, humanize.Bytes(uint64(size)), took), nil
			},
		},
	)
	return pipeline.New("backup", steps...)
}

func (h *Host) archiveFiles(s site, a artifact.Artifact) (string, error) {
	store := h.Store.Filesystem()
	f, err := store.Create(a.Files)
	if err != nil {
		return "", errors.Wrap(err, "creating files archive")
	}
	n, err := sitefs.Archive(h.Sites, s.dir, f, backupExclude)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if rerr := store.Remove(a.Files); rerr != nil && !os.IsNotExist(rerr) {
			return "", errors.Wrapf(err, "archiving %s (leaving partial archive %s: %v)", s.path, a.Files, rerr)
		}
		return "", errors.Wrapf(err, "archiving %s", s.path)
	}
	return fmt.Sprintf("%d files", n), nil
}

func (h *Host) exportDatabase(ctx context.Context, s site, a artifact.Artifact) (string, error) {
	if err := h.project(s).ExportDB(ctx, h.Store.Path(a.Database)); err != nil {
		return "", err
	}
	return a.Database, nil
}

func (h *Host) writeManifest(a artifact.Artifact) (string, error) {
	m, err := h.Store.WriteManifest(a)
	if err != nil {
		return "", errors.Wrap(err, "writing manifest")
	}
	return fmt.Sprintf("%d components", len(m.Components)), nil
}

// verify checks an artifact against its manifest, if it has one.
func (h *Host) verify(logger log.Logger, a artifact.Artifact) (string, error) {
	m, err := h.Store.ReadManifest(a)
	if err != nil {
		level.Debug(logger).Log("artifact", a.ID, "manifest", "none", "err", err)
		return a.ID, nil
	}
	if err := h.Store.Verify(a, m); err != nil {
		return "", err
	}
	return a.ID + " (verified)", nil
}
