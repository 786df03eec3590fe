package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"matrixci/internal/core"
)

const testPipelines = `
pipelines:
  - name: verify
    trigger:
      kind: pull_request
      label: safe-to-run
    axes:
      - name: toolchain
        values: [stable, nightly]
      - name: platform
        values: [linux]
    command: "true"
`

func newTestServer(t *testing.T, pipelines string) *Server {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "matrixci.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(pipelines), 0o644))

	s, err := NewServer(serverConfig{
		ConfigPath:  configPath,
		LedgerPath:  filepath.Join(dir, "ledger.jsonl"),
		LogDir:      filepath.Join(dir, "logs"),
		KeyDir:      filepath.Join(dir, "keys"),
		MaxParallel: 4,
		JobTimeout:  time.Minute,
	})
	require.NoError(t, err)
	return s
}

func submitEvent(t *testing.T, handler http.Handler, ev core.Event) []runSummary {
	t.Helper()
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	var summaries []runSummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summaries))
	return summaries
}

func TestServerSkipsEventWithoutLabel(t *testing.T) {
	s := newTestServer(t, testPipelines)
	handler := s.routes()

	summaries := submitEvent(t, handler, core.Event{
		Kind:   "pull_request",
		Labels: []string{"wip"},
	})
	require.Len(t, summaries, 1)
	require.Equal(t, core.RunSkipped, summaries[0].State)
}

func TestServerRunsMatchingEvent(t *testing.T) {
	s := newTestServer(t, testPipelines)
	handler := s.routes()

	summaries := submitEvent(t, handler, core.Event{
		Kind:   "pull_request",
		Labels: []string{"safe-to-run"},
	})
	require.Len(t, summaries, 1)
	require.NotEqual(t, core.RunSkipped, summaries[0].State)

	run := s.lookupRun(summaries[0].RunID)
	require.NotNil(t, run)
	run.Wait()

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/"+run.ID, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var summary runSummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	require.Equal(t, core.RunReported, summary.State)
	require.NotNil(t, summary.Report)
	require.Equal(t, core.RunSucceeded, summary.Report.Status)
	require.Len(t, summary.Report.Jobs, 2)

	// ledger records land asynchronously after the run reports
	require.Eventually(t, func() bool {
		return len(s.ledger.Records()) == 2
	}, 5*time.Second, 10*time.Millisecond)

	req = httptest.NewRequest(http.MethodGet, "/v1/ledger/verify", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestServerUnknownRun(t *testing.T) {
	s := newTestServer(t, testPipelines)
	handler := s.routes()

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/no-such-run", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestServerSupersedesInFlightRun(t *testing.T) {
	s := newTestServer(t, `
pipelines:
  - name: verify
    trigger:
      kind: pull_request
      label: safe-to-run
    axes:
      - name: toolchain
        values: [stable, nightly]
    command: sleep 30
`)
	handler := s.routes()

	ev := core.Event{
		Kind:   "pull_request",
		Labels: []string{"safe-to-run"},
		Change: "42",
	}
	first := submitEvent(t, handler, ev)
	require.Len(t, first, 1)

	// newer event for the same change cancels the in-flight run
	second := submitEvent(t, handler, ev)
	require.Len(t, second, 1)
	require.NotEqual(t, first[0].RunID, second[0].RunID)

	superseded := s.lookupRun(first[0].RunID)
	require.NotNil(t, superseded)
	superseded.Wait()

	report := superseded.Report()
	require.NotNil(t, report)
	require.Equal(t, core.RunFailed, report.Status)
	for _, job := range report.Jobs {
		require.Equal(t, core.StatusErrored, job.Status)
		require.Equal(t, core.ReasonCancelled, job.Reason)
	}

	// clean up the second run
	s.lookupRun(second[0].RunID).Cancel()
	s.lookupRun(second[0].RunID).Wait()
}

func TestServerRegisterAgent(t *testing.T) {
	s := newTestServer(t, testPipelines)
	handler := s.routes()

	body := []byte(`{"id": "agent-1", "host": "localhost:9090", "platform": "windows"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/agents", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	agent, ok := s.agentFor("windows")
	require.True(t, ok)
	require.Equal(t, "agent-1", agent.ID)

	_, ok = s.agentFor("linux")
	require.False(t, ok)

	req = httptest.NewRequest(http.MethodPost, "/v1/agents", bytes.NewReader([]byte(`{"id": "x"}`)))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
