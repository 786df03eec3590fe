package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"matrixci/internal/core"
	"matrixci/internal/storage"
)

func TestDispatchExecutorRoutesToAgent(t *testing.T) {
	s := newTestServer(t, testPipelines)

	fakeAgent := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req agentJobRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "cargo build", req.Command)
		_ = json.NewEncoder(w).Encode(agentJobResponse{
			Job:    req.Job,
			Status: string(core.StatusSucceeded),
			Output: "remote ok",
		})
	}))
	defer fakeAgent.Close()

	s.mu.Lock()
	s.agents["windows"] = Agent{
		ID:       "agent-1",
		Host:     strings.TrimPrefix(fakeAgent.URL, "http://"),
		Platform: "windows",
	}
	s.mu.Unlock()

	d := &dispatchExecutor{
		server: s,
		local:  &core.ShellExecutor{},
		logs:   storage.NewLogStore(t.TempDir()),
	}

	res := d.Execute(context.Background(), core.JobSpec{
		Values:  map[string]string{"platform": "windows"},
		Tuple:   []string{"windows"},
		Command: "cargo build",
	})
	require.Equal(t, core.StatusSucceeded, res.Status)
	require.NotEmpty(t, res.OutputRef)
}

func TestDispatchExecutorFallsBackToLocal(t *testing.T) {
	s := newTestServer(t, testPipelines)
	d := &dispatchExecutor{server: s, local: &core.ShellExecutor{}}

	res := d.Execute(context.Background(), core.JobSpec{
		Values:  map[string]string{"platform": "linux"},
		Tuple:   []string{"linux"},
		Command: "true",
	})
	require.Equal(t, core.StatusSucceeded, res.Status)
}

func TestDispatchExecutorAgentFailureIsErrored(t *testing.T) {
	s := newTestServer(t, testPipelines)

	fakeAgent := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer fakeAgent.Close()

	s.mu.Lock()
	s.agents["windows"] = Agent{
		ID:       "agent-1",
		Host:     strings.TrimPrefix(fakeAgent.URL, "http://"),
		Platform: "windows",
	}
	s.mu.Unlock()

	d := &dispatchExecutor{server: s, local: &core.ShellExecutor{}}
	res := d.Execute(context.Background(), core.JobSpec{
		Values:  map[string]string{"platform": "windows"},
		Tuple:   []string{"windows"},
		Command: "cargo build",
	})
	require.Equal(t, core.StatusErrored, res.Status)
	require.NotEmpty(t, res.Reason)
}
