package git

import (
	"fmt"
	"net/url"

	"github.com/whilp/git-urls"
)

// Remote is a repository a site's codebase is fetched from.
type Remote struct {
	URL string `yaml:"url"`
}

// Validate checks the URL is one git could fetch from: it has to parse,
// and name a host unless it's a local path.
func (r Remote) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("empty git URL")
	}
	u, err := giturls.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("%q is not a git URL: %v", r.URL, err)
	}
	if u.Scheme != "file" && u.Host == "" {
		return fmt.Errorf("%q has no host", r.URL)
	}
	return nil
}

// SafeURL is the URL without any password in it, for messages and logs.
func (r Remote) SafeURL() string {
	u, err := giturls.Parse(r.URL)
	if err != nil {
		return fmt.Sprintf("<unparseable: %s>", r.URL)
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.String()
}
