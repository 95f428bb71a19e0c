package artifact

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pkg/errors"
)

// Store is the backup root. Nothing in this package writes to it except
// WriteManifest; the components themselves are written by whoever holds
// Filesystem().
type Store struct {
	fs billy.Filesystem
}

func NewStore(fs billy.Filesystem) *Store {
	return &Store{fs: fs}
}

// OpenStore returns a store backed by the directory given.
func OpenStore(root string) *Store {
	return NewStore(osfs.New(root))
}

func (s *Store) Filesystem() billy.Filesystem {
	return s.fs
}

// Path gives the OS path of a location in the store, for handing to
// external tools.
func (s *Store) Path(location string) string {
	return filepath.Join(s.fs.Root(), filepath.FromSlash(location))
}

// Prepare makes sure the site's directory exists, ready for a new
// artifact to be written.
func (s *Store) Prepare(a Artifact) error {
	return errors.Wrapf(s.fs.MkdirAll(a.Site, 0755), "creating backup directory for %s", a.Site)
}

// Size adds up the sizes of the artifact's components as they are now.
func (s *Store) Size(a Artifact) (int64, error) {
	var total int64
	for _, loc := range components(a) {
		info, err := s.fs.Stat(loc)
		if err != nil {
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

// Exists says whether any part of the artifact is in the store already:
// either component, or the manifest.
func (s *Store) Exists(a Artifact) bool {
	for _, loc := range append(components(a), a.Manifest()) {
		if _, err := s.fs.Lstat(loc); err == nil {
			return true
		}
	}
	return false
}

// Unfinished returns the newest artifact of the kind given that a backup
// started but never completed: it has at least one component in the
// store and no manifest.
func (s *Store) Unfinished(site string, kind Kind) (Artifact, bool, error) {
	infos, err := s.fs.ReadDir(site)
	if os.IsNotExist(err) {
		return Artifact{}, false, nil
	}
	if err != nil {
		return Artifact{}, false, errors.Wrapf(err, "reading backups of %s", site)
	}
	seen := map[string]bool{}
	var res []Artifact
	for _, info := range infos {
		name := info.Name()
		var stem string
		switch {
		case info.IsDir():
			continue
		case strings.HasSuffix(name, FilesExt):
			stem = strings.TrimSuffix(name, FilesExt)
		case strings.HasSuffix(name, DatabaseExt):
			stem = strings.TrimSuffix(name, DatabaseExt)
		default:
			continue
		}
		if seen[stem] {
			continue
		}
		seen[stem] = true
		createdAt, k, label, err := ParseID(stem)
		if err != nil || k != kind {
			continue
		}
		a := New(site, createdAt, k, label)
		if a.ID != stem {
			continue
		}
		if _, err := s.fs.Stat(a.Manifest()); err == nil {
			continue
		}
		res = append(res, a)
	}
	if len(res) == 0 {
		return Artifact{}, false, nil
	}
	sortNewestFirst(res)
	return res[0], true, nil
}

func components(a Artifact) []string {
	if a.Kind == Full {
		return []string{a.Files, a.Database}
	}
	return []string{a.Database}
}

// List returns the artifacts of the kind given kept for a site, newest
// first. A site with no backup directory has no artifacts.
func (s *Store) List(site string, kind Kind) ([]Artifact, error) {
	all, err := s.ListAll(site)
	if err != nil {
		return nil, err
	}
	var res []Artifact
	for _, a := range all {
		if a.Kind == kind {
			res = append(res, a)
		}
	}
	return res, nil
}

// ListAll is like List, for artifacts of any kind.
func (s *Store) ListAll(site string) ([]Artifact, error) {
	infos, err := s.fs.ReadDir(site)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading backups of %s", site)
	}

	type parts struct {
		files, db       bool
		filesSz, dbSize int64
	}
	found := map[string]*parts{}
	get := func(stem string) *parts {
		p, ok := found[stem]
		if !ok {
			p = &parts{}
			found[stem] = p
		}
		return p
	}
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		name := info.Name()
		switch {
		case strings.HasSuffix(name, FilesExt):
			p := get(strings.TrimSuffix(name, FilesExt))
			p.files, p.filesSz = true, info.Size()
		case strings.HasSuffix(name, DatabaseExt):
			p := get(strings.TrimSuffix(name, DatabaseExt))
			p.db, p.dbSize = true, info.Size()
		}
	}

	var res []Artifact
	for stem, p := range found {
		createdAt, kind, label, err := ParseID(stem)
		if err != nil {
			// Not one of ours.
			continue
		}
		a := Artifact{
			Site:      site,
			ID:        stem,
			CreatedAt: createdAt,
			Kind:      kind,
			Label:     label,
		}
		switch {
		case kind == Full && p.files && p.db:
			a.Files = site + "/" + stem + FilesExt
			a.Database = site + "/" + stem + DatabaseExt
			a.SizeBytes = p.filesSz + p.dbSize
		case kind == DatabaseOnly && p.db:
			a.Database = site + "/" + stem + DatabaseExt
			a.SizeBytes = p.dbSize
		default:
			// Incomplete; most likely a backup that failed part way.
			continue
		}
		res = append(res, a)
	}
	sortNewestFirst(res)
	return res, nil
}

func sortNewestFirst(as []Artifact) {
	sort.Slice(as, func(i, j int) bool {
		if !as[i].CreatedAt.Equal(as[j].CreatedAt) {
			return as[i].CreatedAt.After(as[j].CreatedAt)
		}
		return as[i].ID > as[j].ID
	})
}
