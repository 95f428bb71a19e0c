package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	nwperr "github.com/nwpdev/nwp/pkg/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := newRoot(ctx, newConsole(os.Stdin, os.Stdout, os.Stderr))
	rootCmd := root.Command()

	cmd, err := rootCmd.ExecuteC()
	code := report(cmd, err)
	stop()
	os.Exit(code)
}

// report prints what went wrong, if anything, and gives the exit code:
// 0 for success (warnings included), 2 when the operator declined to
// go on, 1 for everything else.
func report(cmd *cobra.Command, err error) int {
	if err == nil {
		return 0
	}
	switch err.(type) {
	case *usageError:
		return usage(cmd, err)
	case *helpRequest:
		return 0
	}
	switch nwperr.KindOf(err) {
	case nwperr.UnknownOption, nwperr.MissingValue:
		return usage(cmd, err)
	}
	help := nwperr.HelpOf(err)
	if help == "" {
		help = nwperr.CoverAllError(err).Help
	}
	fmt.Fprint(cmd.ErrOrStderr(), help)
	if nwperr.Is(err, nwperr.Aborted) {
		return 2
	}
	return 1
}

func usage(cmd *cobra.Command, err error) int {
	cmd.PrintErrln("Error: " + err.Error())
	cmd.PrintErrln("")
	cmd.PrintErrln(cmd.UsageString())
	return 1
}
