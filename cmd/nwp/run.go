package main

import (
	"fmt"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nwpdev/nwp/pkg/command"
	"github.com/nwpdev/nwp/pkg/environment"
	"github.com/nwpdev/nwp/pkg/flags"
	"github.com/nwpdev/nwp/pkg/lifecycle"
	"github.com/nwpdev/nwp/pkg/lock"
	"github.com/nwpdev/nwp/pkg/pipeline"
	"github.com/nwpdev/nwp/pkg/provision"
)

// Options taken by every verb that runs a pipeline.
var runOptions = []flags.Option{flags.Yes, flags.Debug, flags.Step, configOption, flags.Help}

func withRunOptions(options ...flags.Option) []flags.Option {
	return append(options, runOptions...)
}

// host puts together the things the operations need.
func (opts *rootOpts) host() (*lifecycle.Host, error) {
	runner := opts.runner
	if runner == nil {
		runner = command.NewExecRunner(log.With(opts.logger, "component", "command"))
	}
	h := lifecycle.NewHost(opts.config, opts.registry, runner)
	h.Progress = opts.console.progress()
	if opts.probe != nil {
		h.Probe = opts.probe
	}
	switch {
	case opts.provider != nil:
		h.Provider = opts.provider
	case opts.config.AWSRegion != "":
		ec2, err := provision.NewEC2FromRegion(opts.config.AWSRegion)
		if err != nil {
			return nil, err
		}
		h.Provider = ec2
	}
	return h, nil
}

// execute locks the sites named, builds the pipeline and runs it, then
// prints the record of the run.
func (opts *rootOpts) execute(set flags.OptionSet, sites []string, build func(*lifecycle.Host) (*pipeline.Pipeline, error)) error {
	var bases []string
	for _, name := range sites {
		env := environment.Parse(name)
		if _, err := environment.Compose(env.Base, env.Kind); err != nil {
			return err
		}
		bases = append(bases, env.Base)
	}
	locks, err := lock.AcquireAll(opts.config.LockDir, bases...)
	if err != nil {
		return err
	}
	defer func() {
		if err := locks.Release(); err != nil {
			level.Warn(opts.logger).Log("msg", "releasing locks", "err", err)
		}
	}()

	h, err := opts.host()
	if err != nil {
		return err
	}
	p, err := build(h)
	if err != nil {
		return err
	}

	exec := pipeline.NewExecutor(log.With(opts.logger, "component", "pipeline"), opts.console, opts.console.out)
	run, err := exec.Run(opts.ctx, p, pipeline.Options{
		StartStep:   set.Int("step"),
		AutoConfirm: set.Bool("yes"),
	})
	if run != nil {
		fmt.Fprintln(opts.console.out)
		pipeline.PrintRun(opts.console.out, run)
	}
	opts.writeMetrics()
	return err
}

func (opts *rootOpts) writeMetrics() {
	if opts.config.MetricsTextfile == "" {
		return
	}
	if err := prometheus.WriteToTextfile(opts.config.MetricsTextfile, prometheus.DefaultGatherer); err != nil {
		level.Warn(opts.logger).Log("msg", "writing metrics", "file", opts.config.MetricsTextfile, "err", err)
	}
}
