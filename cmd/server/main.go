package main

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang/glog"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"matrixci/internal/audit"
	"matrixci/internal/core"
	"matrixci/internal/security"
	"matrixci/internal/storage"
)

const envconfigPrefix = "MATRIXCI"

type serverConfig struct {
	Port        int           `envconfig:"PORT" default:"8080"`
	ConfigPath  string        `envconfig:"CONFIG_PATH" default:"./matrixci.yaml"`
	LedgerPath  string        `envconfig:"LEDGER_PATH" default:"./ledger.jsonl"`
	LogDir      string        `envconfig:"LOG_DIR" default:"./logs"`
	KeyDir      string        `envconfig:"KEY_DIR" default:"./keys"`
	MaxParallel int           `envconfig:"MAX_PARALLEL" default:"4"`
	JobTimeout  time.Duration `envconfig:"JOB_TIMEOUT" default:"5m"`
}

// Agent is a remote execution environment for one platform.
type Agent struct {
	ID       string `json:"id"`
	Host     string `json:"host"`
	Platform string `json:"platform"`
}

// Server holds the pipeline config, live runs and registered agents. All
// mutable state sits behind one mutex.
type Server struct {
	mu       sync.Mutex
	cfg      *core.Config
	orch     *core.Orchestrator
	runs     map[string]*core.Run
	byChange map[string]*core.Run // newest accepted run per change key
	agents   map[string]Agent     // keyed by platform

	ledger  *audit.Ledger
	privKey ed25519.PrivateKey
	pubKey  ed25519.PublicKey
}

func NewServer(sc serverConfig) (*Server, error) {
	cfg, err := core.LoadConfig(sc.ConfigPath)
	if err != nil {
		return nil, err
	}

	ledger, err := audit.Open(sc.LedgerPath)
	if err != nil {
		// fail open: runs still execute, they just go unrecorded
		glog.Warningf("cannot open ledger: %v", err)
	}

	pub, priv, err := ensureServerKey(
		filepath.Join(sc.KeyDir, "server.pub"),
		filepath.Join(sc.KeyDir, "server.priv"),
		sc.KeyDir,
	)
	if err != nil {
		return nil, errors.Wrap(err, "init server keys")
	}

	s := &Server{
		cfg:      cfg,
		runs:     make(map[string]*core.Run),
		byChange: make(map[string]*core.Run),
		agents:   make(map[string]Agent),
		ledger:   ledger,
		privKey:  priv,
		pubKey:   pub,
	}
	local := &core.ShellExecutor{
		Timeout: sc.JobTimeout,
		Logs:    storage.NewLogStore(sc.LogDir),
	}
	s.orch = core.NewOrchestrator(
		&dispatchExecutor{server: s, local: local, logs: storage.NewLogStore(sc.LogDir)},
		sc.MaxParallel,
	)
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/events", s.handleSubmitEvent)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{runID}", s.handleGetRun)
		r.Post("/runs/{runID}/cancel", s.handleCancelRun)
		r.Get("/ledger/verify", s.handleVerifyLedger)
		r.Post("/agents", s.handleRegisterAgent)
	})
	return r
}

type runSummary struct {
	RunID    string          `json:"runId"`
	Pipeline string          `json:"pipeline"`
	State    core.RunState   `json:"state"`
	Report   *core.RunReport `json:"report,omitempty"`
}

func summarize(run *core.Run) runSummary {
	return runSummary{
		RunID:    run.ID,
		Pipeline: run.Pipeline,
		State:    run.State(),
		Report:   run.Report(),
	}
}

// POST /v1/events -> evaluate every configured pipeline against the event,
// start a run per match. A matching run supersedes any in-flight run for the
// same change key.
func (s *Server) handleSubmitEvent(w http.ResponseWriter, r *http.Request) {
	var ev core.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "cannot parse event", http.StatusBadRequest)
		return
	}

	summaries := make([]runSummary, 0, len(s.config().Pipelines))
	for _, p := range s.config().Pipelines {
		run := s.orch.Start(context.Background(), p, ev)
		s.register(run)
		summaries = append(summaries, summarize(run))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(summaries)
}

func (s *Server) config() *core.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// register tracks a run, supersedes the previous run for its change key and
// arranges for the ledger to be written once the run reports.
func (s *Server) register(run *core.Run) {
	s.mu.Lock()
	s.runs[run.ID] = run
	var superseded *core.Run
	if run.State() != core.RunSkipped && run.Change != "" {
		key := run.Pipeline + "/" + run.Change
		superseded = s.byChange[key]
		s.byChange[key] = run
	}
	s.mu.Unlock()

	if superseded != nil && !superseded.State().Terminal() {
		glog.Infof("run %s superseded by %s", superseded.ID, run.ID)
		superseded.Cancel()
	}

	if run.State() != core.RunSkipped {
		go s.recordWhenDone(run)
	}
}

func (s *Server) recordWhenDone(run *core.Run) {
	run.Wait()
	report := run.Report()
	if report == nil || s.ledger == nil {
		return
	}
	if err := s.ledger.RecordReport(report, s.privKey, s.pubKey); err != nil {
		glog.Errorf("cannot record run %s in ledger: %v", run.ID, err)
	}
}

// GET /v1/runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	summaries := make([]runSummary, 0, len(s.runs))
	for _, run := range s.runs {
		summaries = append(summaries, summarize(run))
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summaries)
}

// GET /v1/runs/{runID}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run := s.lookupRun(chi.URLParam(r, "runID"))
	if run == nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summarize(run))
}

// POST /v1/runs/{runID}/cancel
func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	run := s.lookupRun(chi.URLParam(r, "runID"))
	if run == nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	run.Cancel()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summarize(run))
}

func (s *Server) lookupRun(id string) *core.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// GET /v1/ledger/verify
func (s *Server) handleVerifyLedger(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		http.Error(w, "no ledger configured", http.StatusServiceUnavailable)
		return
	}
	if err := s.ledger.VerifyChain(); err != nil {
		http.Error(w, "ledger verification failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.ledger.VerifySignatures(); err != nil {
		http.Error(w, "ledger signature check failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	_, _ = w.Write([]byte("ledger verification ok\n"))
}

// POST /v1/agents
func (s *Server) handleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	var agent Agent
	if err := json.NewDecoder(r.Body).Decode(&agent); err != nil {
		http.Error(w, "cannot parse agent", http.StatusBadRequest)
		return
	}
	if agent.ID == "" || agent.Host == "" || agent.Platform == "" {
		http.Error(w, "agent needs id, host and platform", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.agents[agent.Platform] = agent
	s.mu.Unlock()

	glog.Infof("agent %s registered for platform %q at %s", agent.ID, agent.Platform, agent.Host)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(agent)
}

func (s *Server) agentFor(platform string) (Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agent, ok := s.agents[platform]
	return agent, ok
}

// ensureServerKey loads the ledger signing keypair, generating one on first
// start.
func ensureServerKey(pubPath, privPath, keyDir string) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	if _, err := os.Stat(privPath); os.IsNotExist(err) {
		pub, priv, err := security.GenerateKeyPair()
		if err != nil {
			return nil, nil, err
		}
		if err := os.MkdirAll(keyDir, 0o700); err != nil {
			return nil, nil, err
		}
		if err := security.SaveKeyPair(pub, priv, pubPath, privPath); err != nil {
			return nil, nil, err
		}
		glog.Info("generated new server keys")
		return pub, priv, nil
	}
	pub, err := security.LoadPublicKey(pubPath)
	if err != nil {
		return nil, nil, err
	}
	priv, err := security.LoadPrivateKey(privPath)
	if err != nil {
		return nil, nil, err
	}
	glog.Info("loaded existing server keys")
	return pub, priv, nil
}

func main() {
	flag.Parse()

	var sc serverConfig
	if err := envconfig.Process(envconfigPrefix, &sc); err != nil {
		glog.Exitf("cannot read server configuration from environment: %v", err)
	}

	s, err := NewServer(sc)
	if err != nil {
		glog.Exitf("cannot start server: %v", err)
	}

	addr := fmt.Sprintf(":%d", sc.Port)
	glog.Infof("matrixci server running on %s with %d pipeline(s)", addr, len(s.config().Pipelines))
	if err := http.ListenAndServe(addr, s.routes()); err != nil {
		glog.Exit(err)
	}
}
