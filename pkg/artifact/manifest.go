package artifact

import (
	"fmt"
	"path"
	"time"

	"github.com/ghodss/yaml"
	"github.com/go-git/go-billy/v5/util"
	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
)

// Manifest records what went into an artifact, so it can be checked
// before it's restored.
type Manifest struct {
	Site       string      `json:"site"`
	ID         string      `json:"id"`
	Kind       string      `json:"kind"`
	Label      string      `json:"label,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	Components []Component `json:"components"`
}

type Component struct {
	Name   string        `json:"name"`
	Size   int64         `json:"size"`
	Digest digest.Digest `json:"digest"`
}

func (s *Store) describe(location string) (Component, error) {
	f, err := s.fs.Open(location)
	if err != nil {
		return Component{}, err
	}
	defer f.Close()
	info, err := s.fs.Stat(location)
	if err != nil {
		return Component{}, err
	}
	d, err := digest.FromReader(f)
	if err != nil {
		return Component{}, errors.Wrapf(err, "digesting %s", location)
	}
	return Component{Name: path.Base(location), Size: info.Size(), Digest: d}, nil
}

// WriteManifest digests the artifact's components and writes the
// manifest next to them.
func (s *Store) WriteManifest(a Artifact) (Manifest, error) {
	m := Manifest{
		Site:      a.Site,
		ID:        a.ID,
		Kind:      a.Kind.String(),
		Label:     a.Label,
		CreatedAt: a.CreatedAt,
	}
	for _, loc := range components(a) {
		c, err := s.describe(loc)
		if err != nil {
			return Manifest{}, err
		}
		m.Components = append(m.Components, c)
	}
	bytes, err := yaml.Marshal(m)
	if err != nil {
		return Manifest{}, err
	}
	if err := util.WriteFile(s.fs, a.Manifest(), bytes, 0644); err != nil {
		return Manifest{}, errors.Wrap(err, "writing manifest")
	}
	return m, nil
}

// ReadManifest reads the manifest of an artifact. Artifacts written by
// hand may not have one; the error then satisfies os.IsNotExist.
func (s *Store) ReadManifest(a Artifact) (Manifest, error) {
	var m Manifest
	bytes, err := util.ReadFile(s.fs, a.Manifest())
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(bytes, &m); err != nil {
		return m, errors.Wrapf(err, "parsing manifest of %s", a.ID)
	}
	return m, nil
}

// Verify checks the artifact's components against its manifest.
func (s *Store) Verify(a Artifact, m Manifest) error {
	want := map[string]Component{}
	for _, c := range m.Components {
		want[c.Name] = c
	}
	for _, loc := range components(a) {
		got, err := s.describe(loc)
		if err != nil {
			return err
		}
		w, ok := want[got.Name]
		if !ok {
			return fmt.Errorf("%s is not in the manifest of %s", got.Name, a.ID)
		}
		if w.Digest != got.Digest {
			return fmt.Errorf("%s has digest %s; manifest says %s", got.Name, got.Digest, w.Digest)
		}
	}
	return nil
}
