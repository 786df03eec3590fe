package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gosuri/uitable"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"matrixci/internal/core"
)

type runSummary struct {
	RunID    string          `json:"runId"`
	Pipeline string          `json:"pipeline"`
	State    core.RunState   `json:"state"`
	Report   *core.RunReport `json:"report,omitempty"`
}

// runReport fetches one run from the server and renders it.
func runReport(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("report requires one argument: RUN_ID")
	}
	runID := c.Args().Get(0)

	resp, err := http.Get(c.String(flagServer) + "/v1/runs/" + runID)
	if err != nil {
		return errors.Wrap(err, "fetch run")
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return errors.Errorf("run %s not found", runID)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("server returned %s", resp.Status)
	}

	var summary runSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return errors.Wrap(err, "parse run")
	}

	fmt.Printf("run %s: pipeline %q, state %s\n", summary.RunID, summary.Pipeline, summary.State)
	if summary.Report != nil {
		fmt.Println(renderReport(summary.Report))
	}
	return nil
}

// renderReport lays out one report as a table, jobs in expansion order.
func renderReport(report *core.RunReport) string {
	table := uitable.New()
	table.AddRow("JOB", "STATUS", "EXIT", "OUTPUT")
	for _, job := range report.Jobs {
		status := string(job.Status)
		if job.Status == core.StatusErrored && job.Reason != "" {
			status = fmt.Sprintf("%s (%s)", job.Status, job.Reason)
		}
		table.AddRow(job.Spec.Name(), status, job.ExitCode, job.OutputRef)
	}
	return fmt.Sprintf(
		"pipeline %q: %s\n%s", report.Pipeline, report.Status, table.String())
}
