package core

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
)

// RunState is the per-run state machine:
//
//	idle -> evaluating -> {skipped | expanding} -> executing -> aggregating -> reported
//
// Skipped and reported are terminal; aborted is the exit taken on a
// configuration error.
type RunState string

const (
	RunIdle        RunState = "idle"
	RunEvaluating  RunState = "evaluating"
	RunSkipped     RunState = "skipped"
	RunExpanding   RunState = "expanding"
	RunExecuting   RunState = "executing"
	RunAggregating RunState = "aggregating"
	RunReported    RunState = "reported"
	RunAborted     RunState = "aborted"
)

// Terminal reports whether the state is final.
func (s RunState) Terminal() bool {
	switch s {
	case RunSkipped, RunReported, RunAborted:
		return true
	}
	return false
}

// Run is the live record of one triggered run. State, report and error are
// guarded; everything else is fixed at creation.
type Run struct {
	ID        string
	Pipeline  string
	Change    string
	CreatedAt time.Time

	mu     sync.Mutex
	state  RunState
	report *RunReport
	err    error

	cancel context.CancelFunc
	done   chan struct{}
}

// State returns the run's current state.
func (r *Run) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Report returns the final report, or nil before the run reaches reported.
func (r *Run) Report() *RunReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report
}

// Err returns the configuration error that aborted the run, if any.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Cancel cancels all in-flight jobs. Non-terminal jobs end up errored with
// reason "cancelled"; the run still aggregates and reports.
func (r *Run) Cancel() {
	if r.cancel != nil {
		r.cancel()
	}
}

// Wait blocks until the run reaches a terminal state.
func (r *Run) Wait() {
	<-r.done
}

func (r *Run) setState(s RunState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
	if s.Terminal() {
		close(r.done)
	}
}

// Orchestrator turns a matching event into an executed, aggregated run:
// evaluate the trigger, expand the matrix, execute every cell with bounded
// parallelism, aggregate in expansion order.
type Orchestrator struct {
	executor    Executor
	maxParallel int
}

// NewOrchestrator returns an orchestrator executing at most maxParallel jobs
// at once; values below 1 mean one at a time.
func NewOrchestrator(executor Executor, maxParallel int) *Orchestrator {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Orchestrator{executor: executor, maxParallel: maxParallel}
}

// Start evaluates ev against p and, when the trigger matches, drives the run
// in the background. The returned Run is immediately usable for state
// inspection, Wait and Cancel; a non-matching event returns a run already in
// the skipped state with no executor involvement.
func (o *Orchestrator) Start(ctx context.Context, p Pipeline, ev Event) *Run {
	run := &Run{
		ID:        uuid.NewString(),
		Pipeline:  p.Name,
		Change:    ev.Change,
		CreatedAt: time.Now(),
		state:     RunIdle,
		done:      make(chan struct{}),
	}

	run.setState(RunEvaluating)
	if !p.Trigger.Evaluate(ev) {
		glog.Infof("run %s: pipeline %q skipped for %q event", run.ID, p.Name, ev.Kind)
		run.setState(RunSkipped)
		return run
	}

	ctx, run.cancel = context.WithCancel(ctx)
	go o.drive(ctx, run, p)
	return run
}

func (o *Orchestrator) drive(ctx context.Context, run *Run, p Pipeline) {
	defer run.cancel()

	started := time.Now()
	run.setState(RunExpanding)
	specs, err := Expand(p.Axes, p.Command)
	if err != nil {
		glog.Errorf("run %s: pipeline %q aborted: %v", run.ID, p.Name, err)
		run.mu.Lock()
		run.err = err
		run.mu.Unlock()
		run.setState(RunAborted)
		return
	}
	glog.Infof("run %s: pipeline %q expanded to %d job(s)", run.ID, p.Name, len(specs))

	run.setState(RunExecuting)
	results := o.executeAll(ctx, specs)

	run.setState(RunAggregating)
	report, err := Aggregate(results)
	if err != nil {
		run.mu.Lock()
		run.err = err
		run.mu.Unlock()
		run.setState(RunAborted)
		return
	}
	report.RunID = run.ID
	report.Pipeline = run.Pipeline
	report.StartedAt = started
	report.FinishedAt = time.Now()

	run.mu.Lock()
	run.report = report
	run.mu.Unlock()
	run.setState(RunReported)
	glog.Infof("run %s: pipeline %q reported %s", run.ID, p.Name, report.Status)
}

// executeAll runs specs concurrently up to the parallelism limit. Results
// land in a fixed-size slice indexed by each spec's expansion index, so
// report ordering never depends on completion order. Jobs still waiting for
// a slot when ctx is cancelled are marked errored("cancelled") without ever
// reaching the executor.
func (o *Orchestrator) executeAll(ctx context.Context, specs []JobSpec) []JobResult {
	results := make([]JobResult, len(specs))
	sem := make(chan struct{}, o.maxParallel)
	var wg sync.WaitGroup
	for _, spec := range specs {
		wg.Add(1)
		go func(spec JobSpec) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
				results[spec.Index] = o.executor.Execute(ctx, spec)
				if results[spec.Index].Status != StatusSucceeded {
					glog.Warningf("job %s: %s", spec.Name(), results[spec.Index].Status)
				}
			case <-ctx.Done():
				results[spec.Index] = cancelledResult(spec)
			}
		}(spec)
	}
	wg.Wait()
	return results
}

func cancelledResult(spec JobSpec) JobResult {
	now := time.Now()
	return JobResult{
		Spec:       spec,
		Status:     StatusErrored,
		Reason:     ReasonCancelled,
		StartedAt:  now,
		FinishedAt: now,
	}
}
