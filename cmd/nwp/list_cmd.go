package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nwpdev/nwp/pkg/environment"
	"github.com/nwpdev/nwp/pkg/flags"
	"github.com/nwpdev/nwp/pkg/git"
	"github.com/nwpdev/nwp/pkg/registry"
)

var listSchema = flags.MustSchema("list", configOption, flags.Help)

type listOpts struct {
	*rootOpts
}

func newList(parent *rootOpts) *listOpts {
	return &listOpts{rootOpts: parent}
}

func (opts *listOpts) Command() *cobra.Command {
	return verb(&cobra.Command{
		Use:   "list",
		Short: "List the registered sites.",
		RunE:  opts.RunE,
	}, listSchema)
}

func (opts *listOpts) RunE(cmd *cobra.Command, args []string) error {
	set, err := opts.parse(cmd, listSchema, args)
	if err != nil {
		return err
	}
	if len(set.Args) != 0 {
		return errorWantedNoArgs
	}

	names := opts.registry.SiteNames()
	if len(names) == 0 {
		fmt.Fprintf(opts.console.out, "No sites registered in %s\n", opts.registry.Path())
		return nil
	}
	out := newTabwriter(opts.console.out)
	fmt.Fprintln(out, "SITE\tENVIRONMENT\tRECIPE\tLOCATION")
	for _, name := range names {
		site := opts.registry.Sites[name]
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", name, environment.Parse(name).Kind, site.Recipe, opts.location(name, site))
	}
	return out.Flush()
}

func (opts *listOpts) location(name string, site registry.Site) string {
	switch {
	case site.Production != nil && site.Production.Address != "":
		return site.Production.Address
	case site.Production != nil && site.Production.Instance != "":
		return site.Production.Instance + " (not reachable yet)"
	case site.Directory != "":
		return site.Directory
	}
	return opts.config.SiteDir(name)
}

var recipesSchema = flags.MustSchema("recipes", configOption, flags.Help)

type recipesOpts struct {
	*rootOpts
}

func newRecipes(parent *rootOpts) *recipesOpts {
	return &recipesOpts{rootOpts: parent}
}

func (opts *recipesOpts) Command() *cobra.Command {
	return verb(&cobra.Command{
		Use:   "recipes",
		Short: "List the recipes sites can be installed from.",
		RunE:  opts.RunE,
	}, recipesSchema)
}

func (opts *recipesOpts) RunE(cmd *cobra.Command, args []string) error {
	set, err := opts.parse(cmd, recipesSchema, args)
	if err != nil {
		return err
	}
	if len(set.Args) != 0 {
		return errorWantedNoArgs
	}

	names := opts.registry.RecipeNames()
	if len(names) == 0 {
		fmt.Fprintf(opts.console.out, "No recipes in %s\n", opts.registry.Path())
		return nil
	}
	out := newTabwriter(opts.console.out)
	fmt.Fprintln(out, "RECIPE\tSOURCE\tFROM\tMODULES")
	for _, name := range names {
		rec := opts.registry.Recipes[name]
		from := rec.Project
		if rec.Source == registry.SourceGit {
			from = git.Remote{URL: rec.Git}.SafeURL()
			if rec.Branch != "" {
				from += "#" + rec.Branch
			}
		}
		if from == "" {
			from = opts.config.ComposerPackage
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", name, rec.Source, from, strings.Join(rec.Modules, ","))
	}
	return out.Flush()
}
