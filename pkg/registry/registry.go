// Package registry reads and writes the registry of sites and the
// recipes they're installed from.
//
// The registry is a YAML file. It's parsed and checked against a schema
// in one go when loaded; nothing downstream looks at the raw text.
package registry

import (
	_ "embed"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	ghodss "github.com/ghodss/yaml"
	"github.com/imdario/mergo"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v2"

	nwperr "github.com/nwpdev/nwp/pkg/errors"
	"github.com/nwpdev/nwp/pkg/git"
)

const (
	// SchemaVersion is written into new registries.
	SchemaVersion = "1.0.0"
	// Registries with a schemaVersion meeting this constraint can be
	// read.
	supportedVersions = "^1"

	SourceComposer = "composer"
	SourceGit      = "git"

	DefaultDocroot = "web"
)

//go:embed schema.json
var schema string

// Options are the settings a recipe gives its sites, which a site may
// override.
type Options struct {
	Docroot          string   `yaml:"docroot,omitempty"`
	PHP              string   `yaml:"php,omitempty"`
	Database         string   `yaml:"database,omitempty"`
	Profile          string   `yaml:"profile,omitempty"`
	Modules          []string `yaml:"modules,omitempty"`
	ReinstallModules []string `yaml:"reinstallModules,omitempty"`
	PromoteExclude   []string `yaml:"promoteExclude,omitempty"`
}

// Recipe is a template sites are installed from.
type Recipe struct {
	// composer or git
	Source string `yaml:"source"`
	// The composer project package, for composer recipes
	Project string `yaml:"project,omitempty"`
	// The repository and branch, for git recipes
	Git     string `yaml:"git,omitempty"`
	Branch  string `yaml:"branch,omitempty"`
	Options `yaml:",inline"`
}

// Production says where the production copy of a site lives.
type Production struct {
	Instance string `yaml:"instance,omitempty"`
	Address  string `yaml:"address,omitempty"`
	User     string `yaml:"user,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Path     string `yaml:"path,omitempty"`
	Domain   string `yaml:"domain,omitempty"`
}

// Site is the entry for one environment of a site, keyed by its
// environment name.
type Site struct {
	Recipe string `yaml:"recipe,omitempty"`
	// Where the site lives; if empty, <sitesRoot>/<name>
	Directory  string      `yaml:"directory,omitempty"`
	Options    `yaml:",inline"`
	Production *Production `yaml:"production,omitempty"`
}

type Registry struct {
	SchemaVersion string            `yaml:"schemaVersion"`
	Recipes       map[string]Recipe `yaml:"recipes,omitempty"`
	Sites         map[string]Site   `yaml:"sites,omitempty"`

	path string
}

// New returns an empty registry that will be saved at path.
func New(path string) *Registry {
	return &Registry{
		SchemaVersion: SchemaVersion,
		Recipes:       map[string]Recipe{},
		Sites:         map[string]Site{},
		path:          path,
	}
}

func invalid(path string, err error) error {
	return &nwperr.Error{
		Kind: nwperr.InvalidConfig,
		Err:  errors.Wrapf(err, "registry %s", path),
		Help: fmt.Sprintf(`The site registry at

    %s

could not be used:

    %s

Correct the file and try again.
`, path, err),
	}
}

// Load reads the registry at path. A registry that doesn't exist yet is
// empty.
func Load(path string) (*Registry, error) {
	bytes, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return New(path), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading registry")
	}
	r, err := Parse(bytes)
	if err != nil {
		return nil, invalid(path, err)
	}
	r.path = path
	return r, nil
}

// Parse validates and decodes a registry.
func Parse(bytes []byte) (*Registry, error) {
	asJSON, err := ghodss.YAMLToJSON(bytes)
	if err != nil {
		return nil, err
	}
	res, err := gojsonschema.Validate(gojsonschema.NewStringLoader(schema), gojsonschema.NewBytesLoader(asJSON))
	if err != nil {
		return nil, err
	}
	if !res.Valid() {
		var problems []string
		for _, e := range res.Errors() {
			problems = append(problems, e.String())
		}
		return nil, errors.New(strings.Join(problems, "; "))
	}

	r := New("")
	if err := yaml.Unmarshal(bytes, r); err != nil {
		return nil, err
	}
	if err := r.check(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) check() error {
	v, err := semver.NewVersion(r.SchemaVersion)
	if err != nil {
		return errors.Wrapf(err, "schemaVersion %q", r.SchemaVersion)
	}
	c, _ := semver.NewConstraint(supportedVersions)
	if !c.Check(v) {
		return fmt.Errorf("schemaVersion %s is not supported (want %s)", v, supportedVersions)
	}
	for name, rec := range r.Recipes {
		switch rec.Source {
		case SourceComposer:
			if rec.Project == "" {
				return fmt.Errorf("recipe %s: composer recipes need a project", name)
			}
		case SourceGit:
			if err := (git.Remote{URL: rec.Git}).Validate(); err != nil {
				return fmt.Errorf("recipe %s: %v", name, err)
			}
		}
	}
	for name, site := range r.Sites {
		if site.Recipe == "" {
			continue
		}
		if _, ok := r.Recipes[site.Recipe]; !ok {
			return fmt.Errorf("site %s uses recipe %s, which isn't defined", name, site.Recipe)
		}
	}
	return nil
}

func (r *Registry) Path() string {
	return r.path
}

// Save writes the registry back where it was loaded from, replacing the
// file in one go.
func (r *Registry) Save() error {
	if r.SchemaVersion == "" {
		r.SchemaVersion = SchemaVersion
	}
	bytes, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := ioutil.TempFile(dir, ".registry")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(bytes); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	os.Chmod(tmp.Name(), 0644)
	return errors.Wrap(os.Rename(tmp.Name(), r.path), "saving registry")
}

func notRegistered(what, name string) error {
	return &nwperr.Error{
		Kind: nwperr.NotRegistered,
		Err:  fmt.Errorf("%s %s is not in the registry", what, name),
		Help: fmt.Sprintf(`There is no %s called %s in the registry. Use

    nwp list      (for sites)
    nwp recipes   (for recipes)

to see what there is.
`, what, name),
	}
}

func (r *Registry) Site(name string) (Site, error) {
	s, ok := r.Sites[name]
	if !ok {
		return Site{}, notRegistered("site", name)
	}
	return s, nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.Sites[name]
	return ok
}

func (r *Registry) Recipe(name string) (Recipe, error) {
	rec, ok := r.Recipes[name]
	if !ok {
		return Recipe{}, notRegistered("recipe", name)
	}
	return rec, nil
}

// Effective returns the site's options with anything it leaves unset
// taken from its recipe, and the docroot defaulted.
func (r *Registry) Effective(name string) (Options, error) {
	site, err := r.Site(name)
	if err != nil {
		return Options{}, err
	}
	opts := site.Options
	if rec, ok := r.Recipes[site.Recipe]; ok {
		if err := mergo.Merge(&opts, rec.Options); err != nil {
			return Options{}, err
		}
	}
	if err := mergo.Merge(&opts, Options{Docroot: DefaultDocroot}); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Register adds a site. A site can only be registered once.
func (r *Registry) Register(name string, site Site) error {
	if _, ok := r.Sites[name]; ok {
		return nwperr.Errorf(nwperr.InvalidName, "site %s is already registered", name)
	}
	if site.Recipe != "" {
		if _, err := r.Recipe(site.Recipe); err != nil {
			return err
		}
	}
	if r.Sites == nil {
		r.Sites = map[string]Site{}
	}
	r.Sites[name] = site
	return nil
}

// Unregister removes a site; it's not an error if it isn't there.
func (r *Registry) Unregister(name string) {
	delete(r.Sites, name)
}

// SetProduction records (or with nil, forgets) where a site's
// production copy lives.
func (r *Registry) SetProduction(name string, p *Production) error {
	site, err := r.Site(name)
	if err != nil {
		return err
	}
	site.Production = p
	r.Sites[name] = site
	return nil
}

// SiteNames returns the registered site names in order.
func (r *Registry) SiteNames() []string {
	var names []string
	for name := range r.Sites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RecipeNames returns the recipe names in order.
func (r *Registry) RecipeNames() []string {
	var names []string
	for name := range r.Recipes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
