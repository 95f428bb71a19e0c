// Package environment derives the names of a site's environments from
// its base name. Dev uses the base name itself; the other environments
// append a fixed postfix, e.g., "nwp" -> "nwp_stg".
package environment

import (
	"regexp"
	"sort"
	"strings"

	nwperr "github.com/nwpdev/nwp/pkg/errors"
)

type Kind int

const (
	Dev Kind = iota
	Staging
	Production
)

const separator = "_"

var postfixes = map[Kind]string{
	Staging:    "stg",
	Production: "prod",
}

// byLength holds the postfixes, longest first, so that parsing
// always strips the longest match.
var byLength = func() []Kind {
	kinds := []Kind{Staging, Production}
	sort.Slice(kinds, func(i, j int) bool {
		return len(postfixes[kinds[i]]) > len(postfixes[kinds[j]])
	})
	return kinds
}()

var validBase = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

func (k Kind) String() string {
	switch k {
	case Dev:
		return "dev"
	case Staging:
		return "stg"
	case Production:
		return "prod"
	}
	return "unknown"
}

// Postfix returns the postfix for the kind; Dev has none.
func (k Kind) Postfix() string {
	return postfixes[k]
}

// ParseKind understands the short names used on the command line and in
// the registry.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "", "dev":
		return Dev, nil
	case "stg", "staging":
		return Staging, nil
	case "prod", "production":
		return Production, nil
	}
	return Dev, nwperr.Errorf(nwperr.InvalidName, "unknown environment %q (expected dev, stg or prod)", s)
}

// Next gives the environment a site is promoted to from k.
func Next(k Kind) (Kind, error) {
	switch k {
	case Dev:
		return Staging, nil
	case Staging:
		return Production, nil
	}
	return k, nwperr.Errorf(nwperr.InvalidName, "nothing to promote to from %s", k)
}

// Name is an environment name split into its parts.
type Name struct {
	Base string
	Kind Kind
}

func (n Name) String() string {
	if n.Kind == Dev {
		return n.Base
	}
	return n.Base + separator + n.Kind.Postfix()
}

// Compose gives the name of the environment of the given kind for a
// base name. It refuses base names that already carry a postfix, so a
// staging name can't be derived from a staging name.
func Compose(base string, kind Kind) (string, error) {
	if base == "" {
		return "", nwperr.New(nwperr.InvalidName, "site name is empty")
	}
	if !validBase.MatchString(base) {
		return "", nwperr.Errorf(nwperr.InvalidName, "site name %q may only contain letters, digits, '_' and '-', and must start with a letter or digit", base)
	}
	if parsed := Parse(base); parsed.Kind != Dev {
		return "", nwperr.Errorf(nwperr.InvalidName, "%q already names the %s environment of %q", base, parsed.Kind, parsed.Base)
	}
	if kind != Dev && kind != Staging && kind != Production {
		return "", nwperr.Errorf(nwperr.InvalidName, "unknown environment kind %d", int(kind))
	}
	return Name{Base: base, Kind: kind}.String(), nil
}

// Parse splits an environment name into base name and kind. A name
// without a recognised postfix is a Dev name.
func Parse(name string) Name {
	for _, kind := range byLength {
		suffix := separator + postfixes[kind]
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return Name{Base: strings.TrimSuffix(name, suffix), Kind: kind}
		}
	}
	return Name{Base: name, Kind: Dev}
}

// Sibling gives the name of the environment of the given kind that
// belongs to the same site as name.
func Sibling(name string, kind Kind) (string, error) {
	return Compose(Parse(name).Base, kind)
}
