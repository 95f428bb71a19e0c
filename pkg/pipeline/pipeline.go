// Package pipeline runs the ordered steps of a lifecycle operation.
//
// Steps are numbered from 1 when the pipeline is built and keep their
// numbers for good: a run can be resumed from any step, and the steps
// before it are marked skipped without being run. The executor doesn't
// check that the skipped steps' effects are actually in place; that's
// the operator's claim to make.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/kit/log"
)

type Outcome string

const (
	Pending Outcome = "pending"
	Running Outcome = "running"
	Ok      Outcome = "ok"
	Warn    Outcome = "warn"
	Failed  Outcome = "failed"
	Skipped Outcome = "skipped"
)

// Terminal says whether a step in this state is done with.
func (o Outcome) Terminal() bool {
	switch o {
	case Ok, Warn, Failed, Skipped:
		return true
	}
	return false
}

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusWarned    Status = "succeeded with warnings"
	StatusFailed    Status = "failed"
	StatusAborted   Status = "aborted"
)

// StepFunc does the work of a step. The returned string is a short
// note for the operator, e.g., the file written or the URL to visit.
type StepFunc func(ctx context.Context, logger log.Logger) (string, error)

type Step struct {
	Name string
	Do   StepFunc
	// A non-fatal step that fails is reported as a warning and the run
	// carries on. Use this for steps whose tool is optional, like
	// clearing caches.
	NonFatal bool
	// If not empty, the operator is asked this before the step runs
	// (unless the run is auto-confirmed). At most one step in a
	// pipeline may have a gate.
	Gate string
}

// Pipeline is the fixed list of steps for one operation.
type Pipeline struct {
	Operation string
	steps     []Step
}

// New numbers the steps and checks the pipeline is well-formed.
func New(operation string, steps ...Step) (*Pipeline, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%s: pipeline has no steps", operation)
	}
	gates := 0
	for i, s := range steps {
		if s.Name == "" {
			return nil, fmt.Errorf("%s: step %d has no name", operation, i+1)
		}
		if s.Gate != "" {
			gates++
		}
	}
	if gates > 1 {
		return nil, fmt.Errorf("%s: %d steps ask for confirmation; at most one may", operation, gates)
	}
	return &Pipeline{Operation: operation, steps: steps}, nil
}

func (p *Pipeline) Len() int {
	return len(p.steps)
}

// Names returns the step names in order; the name of step i is at
// index i-1.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name
	}
	return names
}

// Record is what became of one step in a run.
type Record struct {
	Index   int
	Name    string
	Outcome Outcome
	Detail  string
	Elapsed time.Duration
}

// Run is one execution of a pipeline. Runs aren't persisted anywhere;
// to resume, the operator gives the step to start from.
type Run struct {
	ID          string
	Operation   string
	StartStep   int
	AutoConfirm bool
	Steps       []Record
	StartedAt   time.Time
	Elapsed     time.Duration
	Status      Status
}

// FailedStep returns the record of the step that failed, if any.
func (r *Run) FailedStep() *Record {
	for i := range r.Steps {
		if r.Steps[i].Outcome == Failed {
			return &r.Steps[i]
		}
	}
	return nil
}

// Outcomes lists the outcome of each step, in order.
func (r *Run) Outcomes() []Outcome {
	out := make([]Outcome, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = s.Outcome
	}
	return out
}
