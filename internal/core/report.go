package core

import "time"

// RunStatus is the overall outcome of a reported run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunReport aggregates all job results for one triggering event. Jobs are
// ordered by expansion index regardless of completion order.
type RunReport struct {
	RunID      string      `json:"runId"`
	Pipeline   string      `json:"pipeline"`
	Status     RunStatus   `json:"status"`
	Jobs       []JobResult `json:"jobs"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt time.Time   `json:"finishedAt"`
}

// Aggregate folds per-job results into a report. The overall status is
// succeeded only when every job succeeded; a single failed or errored job
// forces failed. An empty result set is a ConfigurationError: expansion of a
// valid pipeline always yields at least one job, so an empty set here means
// the caller fed the aggregator something that never expanded.
func Aggregate(results []JobResult) (*RunReport, error) {
	if len(results) == 0 {
		return nil, configErrorf("empty job set")
	}
	status := RunSucceeded
	for _, r := range results {
		if r.Status != StatusSucceeded {
			status = RunFailed
			break
		}
	}
	return &RunReport{Status: status, Jobs: results}, nil
}
