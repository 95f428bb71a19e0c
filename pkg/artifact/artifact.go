// Package artifact finds and ranks the backups kept for each site.
//
// A store holds one directory per site, named after the site's
// environment name. Every artifact in it is identified by a stem of the
// form
//
//     <YYYYMMDDTHHMMSS>-<kind>[-<label>]
//
// where kind is "full" or "db". A full artifact is a files archive
// (<stem>.tar.gz) together with a database dump (<stem>.sql.gz); a
// database-only artifact is just the dump. A manifest (<stem>.yml) may
// sit alongside.
package artifact

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type Kind int

const (
	Full Kind = iota
	DatabaseOnly
)

func (k Kind) String() string {
	switch k {
	case Full:
		return "full"
	case DatabaseOnly:
		return "db"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func parseKind(s string) (Kind, bool) {
	switch s {
	case "full":
		return Full, true
	case "db":
		return DatabaseOnly, true
	}
	return 0, false
}

const (
	// TimeLayout is how the creation time is written in an artifact ID,
	// always in UTC.
	TimeLayout = "20060102T150405Z"

	FilesExt    = ".tar.gz"
	DatabaseExt = ".sql.gz"
	ManifestExt = ".yml"

	maxLabel = 48
)

// Artifact is one backup of a site. Artifacts are never changed once
// written.
type Artifact struct {
	Site      string
	ID        string
	CreatedAt time.Time
	Kind      Kind
	Label     string
	SizeBytes int64
	// Locations of the components, relative to the store root. Files is
	// empty for a database-only artifact.
	Files    string
	Database string
}

// Manifest gives the location of the manifest file, relative to the
// store root.
func (a Artifact) Manifest() string {
	return a.Site + "/" + a.ID + ManifestExt
}

var labelUnsafe = regexp.MustCompile(`[^A-Za-z0-9._]+`)

// SanitizeLabel makes free text fit for use in an artifact ID.
func SanitizeLabel(label string) string {
	label = labelUnsafe.ReplaceAllString(label, "-")
	label = strings.Trim(label, "-.")
	if len(label) > maxLabel {
		label = strings.TrimRight(label[:maxLabel], "-.")
	}
	return label
}

// NewID constructs the identifier for an artifact created at the time
// given.
func NewID(createdAt time.Time, kind Kind, label string) string {
	id := createdAt.UTC().Format(TimeLayout) + "-" + kind.String()
	if label = SanitizeLabel(label); label != "" {
		id += "-" + label
	}
	return id
}

// ParseID is the inverse of NewID.
func ParseID(id string) (createdAt time.Time, kind Kind, label string, err error) {
	if len(id) < len(TimeLayout)+2 || id[len(TimeLayout)] != '-' {
		return time.Time{}, 0, "", fmt.Errorf("artifact ID %q does not start with a timestamp", id)
	}
	createdAt, err = time.Parse(TimeLayout, id[:len(TimeLayout)])
	if err != nil {
		return time.Time{}, 0, "", fmt.Errorf("artifact ID %q: %v", id, err)
	}
	rest := id[len(TimeLayout)+1:]
	kindStr := rest
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		kindStr, label = rest[:i], rest[i+1:]
	}
	kind, ok := parseKind(kindStr)
	if !ok {
		return time.Time{}, 0, "", fmt.Errorf("artifact ID %q has unknown kind %q", id, kindStr)
	}
	return createdAt, kind, label, nil
}

// New describes an artifact that is about to be written.
func New(site string, createdAt time.Time, kind Kind, label string) Artifact {
	id := NewID(createdAt, kind, label)
	_, _, label, _ = ParseID(id)
	a := Artifact{
		Site:      site,
		ID:        id,
		CreatedAt: createdAt.UTC().Truncate(time.Second),
		Kind:      kind,
		Label:     label,
		Database:  site + "/" + id + DatabaseExt,
	}
	if kind == Full {
		a.Files = site + "/" + id + FilesExt
	}
	return a
}
