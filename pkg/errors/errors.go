package errors

import (
	"errors"
	"fmt"
)

// Representation of errors surfaced to the operator. Each error has a
// kind, which says what went wrong in terms the operator can act on,
// and optionally some help text that can be printed verbatim; i.e.:
//  - a bad name or option on the command line, fix it and re-run
//  - a step failed, remediate and resume from a step
//  - a tool is missing, install it or accept the warning
type Error struct {
	Kind Kind
	// a message that can be printed out for the operator
	Help string
	// the underlying error that can be e.g., logged for developers to look at
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

// Cause lets github.com/pkg/errors see through to the underlying error.
func (e *Error) Cause() error {
	return e.Err
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Kind string

const (
	// A site or environment name is malformed, or would be double-postfixed
	InvalidName Kind = "invalid-name"
	// There is nothing in the backup store to pick from
	NoArtifacts Kind = "no-artifacts"
	// The operator picked something that isn't on offer
	InvalidSelection Kind = "invalid-selection"
	// A command line option isn't known to the verb
	UnknownOption Kind = "unknown-option"
	// A value-taking option was given without a value
	MissingValue Kind = "missing-value"
	// An option value, or a step index, could not be used
	InvalidValue Kind = "invalid-value"
	// The destination of an operation has to exist already, and doesn't
	DestinationMissing Kind = "destination-missing"
	// We waited for something to become ready, and it didn't
	Timeout Kind = "timeout"
	// An external program could not be found or started
	ExternalToolUnavailable Kind = "tool-unavailable"
	// A step of a pipeline failed; the run halted there
	StepFailed Kind = "step-failed"
	// The operator declined a confirmation
	Aborted Kind = "aborted"
	// Another run holds the site
	Locked Kind = "locked"
	// The site or recipe isn't in the registry
	NotRegistered Kind = "not-registered"
	// The settings or the registry don't make sense
	InvalidConfig Kind = "invalid-config"
)

// New makes an error of the given kind, with a message and no help.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

// Errorf makes an error of the given kind, formatting the message.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap gives err a kind and help text; a nil err stays nil.
func Wrap(err error, kind Kind, help string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Help: help, Err: err}
}

// Is reports whether any error in err's chain has the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		err = unwrap(err)
	}
	return false
}

// KindOf returns the outermost kind in err's chain, or "" if there is
// none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HelpOf returns the first help text found in err's chain.
func HelpOf(err error) string {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Help != "" {
			return e.Help
		}
		err = unwrap(err)
	}
	return ""
}

// unwrap understands both the standard library convention and
// github.com/pkg/errors' Cause.
func unwrap(err error) error {
	if u := errors.Unwrap(err); u != nil {
		return u
	}
	if c, ok := err.(interface{ Cause() error }); ok {
		return c.Cause()
	}
	return nil
}

func CoverAllError(err error) *Error {
	return &Error{
		Kind: KindOf(err),
		Err:  err,
		Help: `Error: ` + err.Error() + `

We don't have a specific help message for the error above.

If the message doesn't tell you what to do next, run the same command
again with -d to see each external command and its output.
`,
	}
}
