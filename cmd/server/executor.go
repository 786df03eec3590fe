package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang/glog"

	"matrixci/internal/core"
	"matrixci/internal/storage"
)

// agentJobRequest is what the server posts to an agent's /run endpoint.
// Kept in sync with the agent by hand; the payload is three fields.
type agentJobRequest struct {
	Job     string            `json:"job"`
	Command string            `json:"command"`
	Values  map[string]string `json:"values,omitempty"`
}

type agentJobResponse struct {
	Job      string `json:"job"`
	Status   string `json:"status"`
	ExitCode int    `json:"exitCode"`
	Reason   string `json:"reason,omitempty"`
	Output   string `json:"output"`
}

// dispatchExecutor routes each job to the agent registered for its platform
// axis value, falling back to local shell execution when no agent serves
// that platform. Any transport failure becomes an errored result; nothing
// propagates past the executor boundary.
type dispatchExecutor struct {
	server *Server
	local  core.Executor
	logs   *storage.LogStore
	client http.Client
}

func (d *dispatchExecutor) Execute(ctx context.Context, spec core.JobSpec) core.JobResult {
	agent, ok := d.server.agentFor(spec.Values["platform"])
	if !ok {
		return d.local.Execute(ctx, spec)
	}

	res := core.JobResult{Spec: spec, Status: core.StatusRunning, StartedAt: time.Now()}

	errored := func(reason string) core.JobResult {
		res.FinishedAt = time.Now()
		res.Status = core.StatusErrored
		if ctx.Err() == context.Canceled {
			res.Reason = core.ReasonCancelled
		} else {
			res.Reason = reason
		}
		return res
	}

	body, err := json.Marshal(agentJobRequest{
		Job:     spec.Name(),
		Command: spec.Command,
		Values:  spec.Values,
	})
	if err != nil {
		return errored(err.Error())
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, "http://"+agent.Host+"/run", bytes.NewReader(body))
	if err != nil {
		return errored(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	glog.Infof("job %s dispatched to agent %s", spec.Name(), agent.ID)
	resp, err := d.client.Do(req)
	if err != nil {
		return errored(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errored("agent returned " + resp.Status)
	}

	var out agentJobResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return errored("cannot parse agent response: " + err.Error())
	}

	res.FinishedAt = time.Now()
	switch core.JobStatus(out.Status) {
	case core.StatusSucceeded:
		res.Status = core.StatusSucceeded
	case core.StatusFailed:
		res.Status = core.StatusFailed
		res.ExitCode = out.ExitCode
	default:
		res.Status = core.StatusErrored
		res.Reason = out.Reason
	}

	if d.logs != nil {
		ref, logErr := d.logs.Save(spec.Name(), []byte(out.Output))
		if logErr != nil {
			glog.Warningf("cannot save output for job %s: %v", spec.Name(), logErr)
		} else {
			res.OutputRef = ref
		}
	}
	return res
}
