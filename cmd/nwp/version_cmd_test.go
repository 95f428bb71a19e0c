package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand_InputFailure(t *testing.T) {
	for k, v := range [][]string{
		{"foo"},
		{"foo", "bar"},
		{"foo", "bar", "bizz"},
	} {
		t.Run(fmt.Sprintf("%d", k), func(t *testing.T) {
			buf := new(bytes.Buffer)
			cmd := newVersionCommand()
			cmd.SetOut(buf)
			cmd.SetArgs(v)
			assert.Error(t, cmd.Execute())
		})
	}
}

func TestVersionCommand_SuccessCheckVersion(t *testing.T) {
	for _, e := range []string{
		"v1.0.0",
		"v2.0.0",
	} {
		t.Run(e, func(t *testing.T) {
			buf := new(bytes.Buffer)
			cmd := newVersionCommand()
			version = e
			cmd.SetOut(buf)
			cmd.SetArgs([]string{})
			require.NoError(t, cmd.Execute())
			assert.Equal(t, e, strings.TrimRight(buf.String(), "\n"))
		})
	}
}
