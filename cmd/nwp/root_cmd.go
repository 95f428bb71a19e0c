package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/spf13/cobra"

	"github.com/nwpdev/nwp/pkg/command"
	"github.com/nwpdev/nwp/pkg/config"
	"github.com/nwpdev/nwp/pkg/flags"
	"github.com/nwpdev/nwp/pkg/provision"
	"github.com/nwpdev/nwp/pkg/registry"
)

const (
	EnvVariableConfig = "NWP_CONFIG"
)

type rootOpts struct {
	ctx     context.Context
	console *console

	// Loaded by setup, once a verb's options are parsed
	config   config.Config
	registry *registry.Registry
	logger   log.Logger

	// Stand-ins for the real things, used in tests
	runner   command.Runner
	provider provision.Provider
	probe    provision.Probe
}

func newRoot(ctx context.Context, c *console) *rootOpts {
	return &rootOpts{ctx: ctx, console: c}
}

var rootLongHelp = strings.TrimSpace(`
nwp looks after Drupal sites running under DDEV: it backs them up and
restores them, copies them between environments, promotes them from
dev to staging to production, and creates and removes them.

Every environment of a site is named after it: nwp4 is the development
copy, nwp4_stg the staging copy, nwp4_prod production.

Workflow:
  nwp install d nwp4                 # Create a site from the recipe "d".
  nwp backup nwp4 before upgrade     # Back it up, with a note.
  nwp copy nwp4 nwp4_stg             # Make a staging copy.
  nwp promote nwp4                   # Push dev's code and config to staging.
  nwp restore -f nwp4                # Put the latest backup back.

Options go after the verb, and short options can be combined: -byf.
Each verb lists its own with -h.
`)

func (opts *rootOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "nwp",
		Long:          rootLongHelp,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(opts.console.out)
	cmd.SetErr(opts.console.err)

	cmd.AddCommand(
		newBackup(opts).Command(),
		newRestore(opts).Command(),
		newCopy(opts).Command(),
		newPromote(opts).Command(),
		newInstall(opts).Command(),
		newDelete(opts).Command(),
		newProvision(opts).Command(),
		newDeprovision(opts).Command(),
		newArtifacts(opts).Command(),
		newList(opts).Command(),
		newRecipes(opts).Command(),
		newVersionCommand(),
	)
	return cmd
}

// Options every verb takes.
var (
	configOption = flags.Option{Name: "config", Type: flags.String, Usage: "read settings from `file` (or set " + EnvVariableConfig + ")"}
	dbOnlyOption = flags.Option{Name: "db-only", Short: "b", Type: flags.Bool, Usage: "the database only, not the files"}
)

// verb sets up a command whose options are parsed by its own schema
// rather than by cobra, so that short options keep a meaning per verb.
func verb(cmd *cobra.Command, schema *flags.Schema) *cobra.Command {
	cmd.DisableFlagParsing = true
	cmd.SetUsageFunc(func(c *cobra.Command) error {
		writeUsage(c.OutOrStderr(), c, schema)
		return nil
	})
	return cmd
}

func writeUsage(out io.Writer, cmd *cobra.Command, schema *flags.Schema) {
	fmt.Fprintf(out, "Usage:\n  %s\n\nOptions:\n%s", cmd.UseLine(), schema.Usage())
	if cmd.Example != "" {
		fmt.Fprintf(out, "\nExamples:\n%s\n", cmd.Example)
	}
}

// parse decodes a verb's tokens and, unless only help was asked for,
// loads the configuration and registry.
func (opts *rootOpts) parse(cmd *cobra.Command, schema *flags.Schema, tokens []string) (flags.OptionSet, error) {
	set, err := schema.Parse(tokens)
	if err != nil {
		return set, err
	}
	if set.Bool("help") {
		if cmd.Short != "" {
			fmt.Fprintln(opts.console.out, cmd.Short)
			fmt.Fprintln(opts.console.out)
		}
		writeUsage(opts.console.out, cmd, schema)
		return set, &helpRequest{}
	}
	return set, opts.setup(set)
}

func (opts *rootOpts) setup(set flags.OptionSet) error {
	path := os.Getenv(EnvVariableConfig)
	if set.Changed("config") || path == "" {
		path = set.String("config")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	opts.config = cfg
	opts.logger = newLogger(opts.console.err, cfg.LogFormat, set.Bool("debug"))

	reg, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		return err
	}
	opts.registry = reg
	level.Debug(opts.logger).Log("config", path, "registry", cfg.RegistryPath, "sites", len(reg.Sites))
	return nil
}

func newLogger(w io.Writer, format string, debug bool) log.Logger {
	var logger log.Logger
	if format == "json" {
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
	} else {
		logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
	}
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	logger = log.With(logger, "caller", log.DefaultCaller)
	allow := level.AllowWarn()
	if debug {
		allow = level.AllowDebug()
	}
	return level.NewFilter(logger, allow)
}
