package pipeline

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	nwperr "github.com/nwpdev/nwp/pkg/errors"
)

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// ConfirmFunc adapts a function to a Confirmer.
type ConfirmFunc func(prompt string) (bool, error)

func (f ConfirmFunc) Confirm(prompt string) (bool, error) {
	return f(prompt)
}

// Options for a single run.
type Options struct {
	// The step to start from; 0 means 1. Steps before it are skipped.
	StartStep int
	// Answer yes to the confirmation gate without asking.
	AutoConfirm bool
}

// Executor runs pipelines one step at a time.
type Executor struct {
	logger  log.Logger
	confirm Confirmer
	out     io.Writer
	now     func() time.Time
}

// NewExecutor returns an executor that logs to logger, asks confirm at
// a pipeline's gate, and writes progress lines to out (which may be
// nil).
func NewExecutor(logger log.Logger, confirm Confirmer, out io.Writer) *Executor {
	if out == nil {
		out = ioutil.Discard
	}
	return &Executor{
		logger:  logger,
		confirm: confirm,
		out:     out,
		now:     time.Now,
	}
}

// Run executes the pipeline. The returned Run is always non-nil when
// the pipeline got as far as starting; the error is non-nil if the run
// failed or was aborted.
func (e *Executor) Run(ctx context.Context, p *Pipeline, opts Options) (*Run, error) {
	start := opts.StartStep
	if start == 0 {
		start = 1
	}
	if start < 1 || start > len(p.steps) {
		return nil, nwperr.Errorf(nwperr.InvalidValue, "%s has steps 1 to %d; can't start from step %d", p.Operation, len(p.steps), start)
	}

	run := &Run{
		ID:          uuid.New().String(),
		Operation:   p.Operation,
		StartStep:   start,
		AutoConfirm: opts.AutoConfirm,
		StartedAt:   e.now(),
		Status:      StatusRunning,
	}
	for i, s := range p.steps {
		run.Steps = append(run.Steps, Record{Index: i + 1, Name: s.Name, Outcome: Pending})
	}

	logger := log.With(e.logger, "op", p.Operation, "run", run.ID)
	level.Debug(logger).Log("msg", "starting run", "steps", len(p.steps), "start", start, "auto-confirm", opts.AutoConfirm)

	defer func() {
		run.Elapsed = e.now().Sub(run.StartedAt)
		runDuration.With("operation", p.Operation, "status", string(run.Status)).Observe(run.Elapsed.Seconds())
		level.Info(logger).Log("msg", "run finished", "status", run.Status, "took", run.Elapsed)
	}()

	warned := false
	for i, step := range p.steps {
		rec := &run.Steps[i]
		if rec.Index < start {
			rec.Outcome = Skipped
			rec.Detail = fmt.Sprintf("resuming from step %d", start)
			continue
		}

		if err := ctx.Err(); err != nil {
			rec.Outcome = Failed
			rec.Detail = err.Error()
			run.Status = StatusFailed
			return run, stepFailed(p, rec, err)
		}

		if step.Gate != "" && !opts.AutoConfirm {
			ok, err := e.ask(step.Gate)
			if err != nil {
				rec.Outcome = Failed
				rec.Detail = err.Error()
				run.Status = StatusFailed
				return run, stepFailed(p, rec, err)
			}
			if !ok {
				rec.Detail = "not confirmed"
				run.Status = StatusAborted
				return run, &nwperr.Error{
					Kind: nwperr.Aborted,
					Err:  fmt.Errorf("%s aborted at step %d (%s)", p.Operation, rec.Index, rec.Name),
					Help: "Aborted. Nothing was changed from this step on.\n",
				}
			}
		}

		stepLogger := log.With(logger, "step", rec.Index, "name", step.Name)
		fmt.Fprintf(e.out, "[%d/%d] %s\n", rec.Index, len(p.steps), step.Name)
		rec.Outcome = Running

		began := e.now()
		var (
			detail string
			err    error
		)
		if step.Do != nil {
			detail, err = step.Do(ctx, stepLogger)
		}
		rec.Elapsed = e.now().Sub(began)

		switch {
		case err == nil:
			rec.Outcome = Ok
			rec.Detail = detail
			level.Debug(stepLogger).Log("outcome", rec.Outcome, "took", rec.Elapsed)
		case step.NonFatal:
			rec.Outcome = Warn
			rec.Detail = err.Error()
			warned = true
			level.Warn(stepLogger).Log("outcome", rec.Outcome, "err", err)
		default:
			rec.Outcome = Failed
			rec.Detail = err.Error()
			level.Error(stepLogger).Log("outcome", rec.Outcome, "err", err)
		}
		stepDuration.With("operation", p.Operation, "step", step.Name, "outcome", string(rec.Outcome)).Observe(rec.Elapsed.Seconds())
		fmt.Fprintf(e.out, "      %s (%s)%s\n", rec.Outcome, rec.Elapsed.Round(time.Millisecond), suffix(rec.Detail))

		if rec.Outcome == Failed {
			run.Status = StatusFailed
			return run, stepFailed(p, rec, err)
		}
	}

	run.Status = StatusSucceeded
	if warned {
		run.Status = StatusWarned
	}
	return run, nil
}

func (e *Executor) ask(prompt string) (bool, error) {
	if e.confirm == nil {
		return false, errors.New("confirmation needed but there's no one to ask; use -y to confirm in advance")
	}
	return e.confirm.Confirm(prompt)
}

func suffix(detail string) string {
	if detail == "" {
		return ""
	}
	return ": " + detail
}

func stepFailed(p *Pipeline, rec *Record, cause error) error {
	help := fmt.Sprintf(`Step %d (%s) of %s failed:

    %s

The steps before it completed, and their effects were left in place.
Once you have fixed the problem, run the same command again with
-s %d to retry this step`, rec.Index, rec.Name, p.Operation, rec.Detail, rec.Index)
	if rec.Index < len(p.steps) {
		help += fmt.Sprintf(", or with -s %d if you completed it by hand", rec.Index+1)
	}
	help += ".\n"
	return &nwperr.Error{
		Kind: nwperr.StepFailed,
		Help: help,
		Err:  errors.Wrapf(cause, "%s: step %d (%s)", p.Operation, rec.Index, rec.Name),
	}
}
