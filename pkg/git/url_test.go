package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeURL(t *testing.T) {
	const password = "s3cret"
	for _, u := range []string{
		"git@github.com:nwpdev/opensocial.git",
		"https://deploy@git.example.org:8443/sites/nwp4.git",
		"https://deploy:" + password + "@git.example.org:8443/sites/nwp4.git",
	} {
		safe := Remote{u}.SafeURL()
		assert.NotContains(t, safe, password)
		assert.Contains(t, safe, "git")
	}
	assert.Equal(t, "https://github.com/nwpdev/opensocial.git", Remote{"https://github.com/nwpdev/opensocial.git"}.SafeURL())
	assert.Equal(t, "https://deploy@git.example.org/nwp4.git", Remote{"https://deploy:" + password + "@git.example.org/nwp4.git"}.SafeURL())
}

func TestValidate(t *testing.T) {
	for _, good := range []string{
		"git@github.com:nwpdev/recipes.git",
		"https://github.com/nwpdev/recipes.git",
		"ssh://git@gitlab.example.com/team/site.git",
	} {
		assert.NoError(t, Remote{good}.Validate(), good)
	}
	for _, bad := range []string{"", "https:///nohost"} {
		assert.Error(t, Remote{bad}.Validate(), bad)
	}
}
