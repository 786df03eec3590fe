package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"matrixci/internal/core"
)

func newTestAgent() *agent {
	return &agent{
		cfg:      agentConfig{ID: "agent-1", Platform: "linux"},
		executor: &core.ShellExecutor{},
	}
}

func runJob(t *testing.T, a *agent, body string) (*httptest.ResponseRecorder, jobResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(body))
	w := httptest.NewRecorder()
	a.handleRunJob(w, req)

	var resp jobResponse
	if w.Code == http.StatusOK {
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	}
	return w, resp
}

func TestAgentRunsJob(t *testing.T) {
	w, resp := runJob(t, newTestAgent(),
		`{"job": "stable/linux", "command": "echo hi", "values": {"toolchain": "stable"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "stable/linux", resp.Job)
	require.Equal(t, string(core.StatusSucceeded), resp.Status)
	require.Equal(t, "hi\n", resp.Output)
}

func TestAgentReportsFailure(t *testing.T) {
	w, resp := runJob(t, newTestAgent(), `{"job": "stable/linux", "command": "exit 7"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, string(core.StatusFailed), resp.Status)
	require.Equal(t, 7, resp.ExitCode)
}

func TestAgentRejectsBadPayload(t *testing.T) {
	w, _ := runJob(t, newTestAgent(), `not json`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
