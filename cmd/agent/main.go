package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang/glog"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"matrixci/internal/core"
)

const envconfigPrefix = "AGENT"

type agentConfig struct {
	ID         string        `envconfig:"ID" required:"true"`
	Platform   string        `envconfig:"PLATFORM" required:"true"`
	Port       int           `envconfig:"PORT" default:"9090"`
	Host       string        `envconfig:"HOST" default:"localhost"`
	ServerURL  string        `envconfig:"SERVER_URL"`
	JobTimeout time.Duration `envconfig:"JOB_TIMEOUT" default:"5m"`
}

// jobRequest mirrors the server's dispatch payload.
type jobRequest struct {
	Job     string            `json:"job"`
	Command string            `json:"command"`
	Values  map[string]string `json:"values,omitempty"`
}

type jobResponse struct {
	Job      string `json:"job"`
	Status   string `json:"status"`
	ExitCode int    `json:"exitCode"`
	Reason   string `json:"reason,omitempty"`
	Output   string `json:"output"`
}

type agent struct {
	cfg      agentConfig
	executor *core.ShellExecutor
}

// POST /run -> execute one job and return its outcome inline. Output goes
// back in the response body; the server owns storage and the ledger.
func (a *agent) handleRunJob(w http.ResponseWriter, r *http.Request) {
	var job jobRequest
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		http.Error(w, "cannot parse job", http.StatusBadRequest)
		return
	}

	glog.Infof("agent %s running job %s", a.cfg.ID, job.Job)

	// no log store on the agent: output goes back inline for the server to keep
	spec := core.JobSpec{Values: job.Values, Command: job.Command}
	res := a.executor.Execute(r.Context(), spec)

	resp := jobResponse{
		Job:      job.Job,
		Status:   string(res.Status),
		ExitCode: res.ExitCode,
		Reason:   res.Reason,
		Output:   res.Output,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// register announces this agent to the server so jobs for its platform get
// dispatched here.
func register(cfg agentConfig) error {
	body, err := json.Marshal(map[string]string{
		"id":       cfg.ID,
		"host":     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		"platform": cfg.Platform,
	})
	if err != nil {
		return err
	}
	resp, err := http.Post(cfg.ServerURL+"/v1/agents", "application/json", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "register agent")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("server rejected registration: %s", resp.Status)
	}
	return nil
}

func main() {
	flag.Parse()

	var cfg agentConfig
	if err := envconfig.Process(envconfigPrefix, &cfg); err != nil {
		glog.Exitf("cannot read agent configuration from environment: %v", err)
	}

	a := &agent{
		cfg:      cfg,
		executor: &core.ShellExecutor{Timeout: cfg.JobTimeout},
	}

	if cfg.ServerURL != "" {
		if err := register(cfg); err != nil {
			glog.Exit(err)
		}
		glog.Infof("agent %s registered with %s for platform %q", cfg.ID, cfg.ServerURL, cfg.Platform)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/run", a.handleRunJob)

	addr := fmt.Sprintf(":%d", cfg.Port)
	glog.Infof("agent %s serving platform %q on %s", cfg.ID, cfg.Platform, addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		glog.Exit(err)
	}
}
