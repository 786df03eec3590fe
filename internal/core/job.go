package core

import (
	"strings"
	"time"
)

// JobStatus is the lifecycle status of one matrix job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusErrored   JobStatus = "errored"
)

// ReasonCancelled is the errored reason recorded when a job is cancelled or
// superseded before reaching a terminal state on its own.
const ReasonCancelled = "cancelled"

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusErrored:
		return true
	}
	return false
}

// JobSpec is one fully resolved cell of the expanded matrix: a value for
// each axis plus the command with placeholders substituted. Index is the
// cell's position in expansion order and never changes.
type JobSpec struct {
	Index   int               `json:"index"`
	Values  map[string]string `json:"values,omitempty"`
	Tuple   []string          `json:"tuple,omitempty"` // axis values in declaration order
	Command string            `json:"command"`
}

// Name renders the job's axis-value tuple, e.g. "nightly/windows". A job
// from an empty axis list is named "all".
func (j JobSpec) Name() string {
	if len(j.Tuple) == 0 {
		return "all"
	}
	return strings.Join(j.Tuple, "/")
}

// JobResult is the outcome of executing one JobSpec. Immutable once the
// status is terminal.
type JobResult struct {
	Spec       JobSpec   `json:"spec"`
	Status     JobStatus `json:"status"`
	Reason     string    `json:"reason,omitempty"` // set when Status is errored
	ExitCode   int       `json:"exitCode"`
	OutputRef  string    `json:"outputRef,omitempty"`
	// Output holds the raw captured output when no log store is attached
	// (the agent relays it inline). Never serialized into reports.
	Output     string    `json:"-"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}
