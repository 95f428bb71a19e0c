package flags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nwperr "github.com/nwpdev/nwp/pkg/errors"
)

var (
	dbOnly = Option{Name: "db-only", Short: "b", Type: Bool}
	latest = Option{Name: "latest", Short: "f", Type: Bool}
	label  = Option{Name: "message", Short: "m", Type: String}
)

func restoreSchema() *Schema {
	return MustSchema("restore", dbOnly, latest, Yes, Debug, Open, Step, label, Help)
}

func TestClusterEqualsSeparateFlags(t *testing.T) {
	s := restoreSchema()
	fused, err := s.Parse([]string{"-bfy", "nwp4", "nwp4_copy"})
	require.NoError(t, err)
	separate, err := s.Parse([]string{"-b", "-f", "-y", "nwp4", "nwp4_copy"})
	require.NoError(t, err)
	reordered, err := s.Parse([]string{"-y", "nwp4", "-f", "nwp4_copy", "-b"})
	require.NoError(t, err)

	assert.Equal(t, fused, separate)
	assert.Equal(t, fused, reordered)
	assert.True(t, fused.Bool("db-only"))
	assert.True(t, fused.Bool("latest"))
	assert.True(t, fused.Bool("yes"))
	assert.False(t, fused.Bool("open"))
	assert.Equal(t, []string{"nwp4", "nwp4_copy"}, fused.Args)
}

func TestStepForms(t *testing.T) {
	s := restoreSchema()

	opts, err := s.Parse([]string{"--step=5"})
	require.NoError(t, err)
	assert.Equal(t, 5, opts.Int("step"))
	assert.True(t, opts.Changed("step"))

	opts, err = s.Parse([]string{"--step", "6"})
	require.NoError(t, err)
	assert.Equal(t, 6, opts.Int("step"))

	opts, err = s.Parse([]string{"-s", "7", "site"})
	require.NoError(t, err)
	assert.Equal(t, 7, opts.Int("step"))
	assert.Equal(t, []string{"site"}, opts.Args)

	opts, err = s.Parse([]string{"-yos", "3", "site"})
	require.NoError(t, err)
	assert.Equal(t, 3, opts.Int("step"))
	assert.True(t, opts.Bool("yes"))
	assert.True(t, opts.Bool("open"))

	opts, err = s.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, opts.Int("step"))
	assert.False(t, opts.Changed("step"))
}

func TestShortEqualsFormRejected(t *testing.T) {
	s := restoreSchema()
	for _, args := range [][]string{
		{"-s=5"},
		{"-ys=5"},
		{"-y=true"},
	} {
		_, err := s.Parse(args)
		assert.True(t, nwperr.Is(err, nwperr.UnknownOption), "%v: %v", args, err)
	}
}

func TestValueOptionMustEndCluster(t *testing.T) {
	s := restoreSchema()
	for _, args := range [][]string{
		{"-sy", "5"},
		{"-s5"},
	} {
		_, err := s.Parse(args)
		assert.True(t, nwperr.Is(err, nwperr.MissingValue), "%v: %v", args, err)
	}
}

func TestMissingValue(t *testing.T) {
	s := restoreSchema()
	for _, args := range [][]string{
		{"-s"},
		{"site", "--step"},
		{"-ys"},
		{"-s", "-y", "site"},
		{"-s", "-yf", "site"},
		{"--step", "--yes", "site"},
		{"--step", "--message=x"},
		{"-m", "-s", "3"},
	} {
		_, err := s.Parse(args)
		assert.True(t, nwperr.Is(err, nwperr.MissingValue), "%v: %v", args, err)
	}
}

func TestDashedValues(t *testing.T) {
	s := restoreSchema()
	// only tokens naming an option of the verb are refused as values
	opts, err := s.Parse([]string{"-m", "-x", "site"})
	require.NoError(t, err)
	assert.Equal(t, "-x", opts.String("message"))
	assert.Equal(t, []string{"site"}, opts.Args)

	opts, err = s.Parse([]string{"-s", "-1"})
	require.NoError(t, err)
	assert.Equal(t, -1, opts.Int("step"))
}

func TestUnknownOption(t *testing.T) {
	s := restoreSchema()
	for _, args := range [][]string{
		{"-x"},
		{"-byx"},
		{"--nope"},
		{"--nope=1"},
	} {
		_, err := s.Parse(args)
		assert.True(t, nwperr.Is(err, nwperr.UnknownOption), "%v: %v", args, err)
	}
}

func TestInvalidValue(t *testing.T) {
	s := restoreSchema()
	_, err := s.Parse([]string{"--step=abc"})
	assert.True(t, nwperr.Is(err, nwperr.InvalidValue), "%v", err)
	_, err = s.Parse([]string{"--yes=perhaps"})
	assert.True(t, nwperr.Is(err, nwperr.InvalidValue), "%v", err)
}

func TestDoubleDashEndsOptions(t *testing.T) {
	s := restoreSchema()
	opts, err := s.Parse([]string{"-y", "--", "-b", "site"})
	require.NoError(t, err)
	assert.False(t, opts.Bool("db-only"))
	assert.Equal(t, []string{"-b", "site"}, opts.Args)
}

func TestStringValues(t *testing.T) {
	s := restoreSchema()
	opts, err := s.Parse([]string{"-m", "before upgrade", "site"})
	require.NoError(t, err)
	assert.Equal(t, "before upgrade", opts.String("message"))

	opts, err = s.Parse([]string{"--message=-odd"})
	require.NoError(t, err)
	assert.Equal(t, "-odd", opts.String("message"))

	opts, err = s.Parse([]string{"-"})
	require.NoError(t, err)
	assert.Equal(t, []string{"-"}, opts.Args)
}

func TestSchemaClashes(t *testing.T) {
	_, err := NewSchema("x", Yes, Option{Name: "yes", Type: Bool})
	assert.Error(t, err)
	_, err = NewSchema("x", Yes, Option{Name: "yank", Short: "y", Type: Bool})
	assert.Error(t, err)
	_, err = NewSchema("x", Option{Name: "bad", Short: "ab"})
	assert.Error(t, err)
	_, err = NewSchema("x", Option{Name: ""})
	assert.Error(t, err)
}

func TestSameLetterDifferentVerbs(t *testing.T) {
	filesOnly := Option{Name: "files-only", Short: "f", Type: Bool}
	restore := MustSchema("restore", latest)
	cp := MustSchema("copy", filesOnly)

	r, err := restore.Parse([]string{"-f"})
	require.NoError(t, err)
	c, err := cp.Parse([]string{"-f"})
	require.NoError(t, err)
	assert.True(t, r.Bool("latest"))
	assert.True(t, c.Bool("files-only"))
	assert.False(t, c.Bool("latest"))
}

func TestUsage(t *testing.T) {
	u := restoreSchema().Usage()
	assert.Contains(t, u, "--db-only")
	assert.Contains(t, u, "-s, --step N")
}
