package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nwpdev/nwp/pkg/artifact"
	"github.com/nwpdev/nwp/pkg/environment"
	"github.com/nwpdev/nwp/pkg/flags"
)

type artifactsOpts struct {
	*rootOpts
}

func newArtifacts(parent *rootOpts) *artifactsOpts {
	return &artifactsOpts{rootOpts: parent}
}

var artifactsSchema = flags.MustSchema("artifacts", dbOnlyOption, configOption, flags.Help)

func (opts *artifactsOpts) Command() *cobra.Command {
	return verb(&cobra.Command{
		Use:   "artifacts [options] <site>",
		Short: "List the backups of a site, newest first.",
		Example: makeExample(
			"nwp artifacts nwp4",
			"nwp artifacts -b nwp4_stg",
		),
		RunE: opts.RunE,
	}, artifactsSchema)
}

func (opts *artifactsOpts) RunE(cmd *cobra.Command, args []string) error {
	set, err := opts.parse(cmd, artifactsSchema, args)
	if err != nil {
		return err
	}
	if err := checkArgs(set.Args, 1, 1, "a site name"); err != nil {
		return err
	}
	site := set.Args[0]
	env := environment.Parse(site)
	if _, err := environment.Compose(env.Base, env.Kind); err != nil {
		return err
	}

	store := artifact.OpenStore(opts.config.BackupRoot)
	var list []artifact.Artifact
	if set.Bool("db-only") {
		list, err = store.List(site, artifact.DatabaseOnly)
	} else {
		list, err = store.ListAll(site)
	}
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintf(opts.console.out, "No backups of %s in %s\n", site, opts.config.BackupRoot)
		return nil
	}
	artifact.PrintArtifacts(opts.console.out, list, false)
	return nil
}
