package main

import (
	"errors"
	"fmt"
)

type usageError struct {
	error
}

func newUsageError(msg string) *usageError {
	return &usageError{error: errors.New(msg)}
}

func newUsageErrorf(format string, args ...interface{}) *usageError {
	return &usageError{error: fmt.Errorf(format, args...)}
}

// helpRequest is returned when a verb was asked for its usage with -h;
// the usage has already been printed.
type helpRequest struct{}

func (*helpRequest) Error() string {
	return "help requested"
}

func checkArgs(args []string, min, max int, want string) error {
	if len(args) < min {
		return newUsageErrorf("expected %s", want)
	}
	if max >= 0 && len(args) > max {
		return newUsageErrorf("expected %s, got %d arguments", want, len(args))
	}
	return nil
}

var errorWantedNoArgs = newUsageError("expected no (non-flag) arguments")

func checkAtMostOne(optsDescription string, supplied ...bool) error {
	found := false
	for _, s := range supplied {
		if found && s {
			return newUsageError("please supply only one of " + optsDescription)
		}
		found = found || s
	}
	return nil
}
