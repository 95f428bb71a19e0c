package errors

import (
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsSeesThroughWrapping(t *testing.T) {
	base := New(ExternalToolUnavailable, "ddev not found")
	wrapped := pkgerrors.Wrap(base, "starting environment")
	step := Wrap(wrapped, StepFailed, "step 4 failed")

	assert.True(t, Is(step, StepFailed))
	assert.True(t, Is(step, ExternalToolUnavailable))
	assert.False(t, Is(step, Timeout))
	assert.Equal(t, StepFailed, KindOf(step))
}

func TestIsWithStdlibWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", Errorf(NoArtifacts, "no backups for %s", "nwp"))
	assert.True(t, Is(err, NoArtifacts))
	assert.Equal(t, NoArtifacts, KindOf(err))
	assert.Equal(t, "outer: no backups for nwp", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, StepFailed, "help"))
}

func TestHelpOf(t *testing.T) {
	inner := &Error{Kind: Locked, Help: "wait for the other run", Err: errors.New("locked")}
	assert.Equal(t, "wait for the other run", HelpOf(pkgerrors.Wrap(inner, "acquiring lock")))
	assert.Equal(t, "", HelpOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestErrorWithoutCause(t *testing.T) {
	e := &Error{Kind: Aborted}
	assert.Equal(t, "aborted", e.Error())
}

func TestCoverAllError(t *testing.T) {
	err := CoverAllError(New(InvalidConfig, "sitesRoot is empty"))
	assert.Equal(t, InvalidConfig, err.Kind)
	assert.Contains(t, err.Help, "sitesRoot is empty")
}
