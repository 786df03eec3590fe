package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Record is one tamper-evident ledger entry for a finished matrix job. Each
// record links to its predecessor by hash and is signed by the server key,
// so a verifier can detect rewritten history offline.
type Record struct {
	Index      int    `json:"index"`
	Timestamp  string `json:"timestamp"`
	RunID      string `json:"runId"`
	Pipeline   string `json:"pipeline"`
	Job        string `json:"job"` // axis value tuple, e.g. "nightly/windows"
	Status     string `json:"status"`
	ExitCode   int    `json:"exitCode"`
	OutputRef  string `json:"outputRef,omitempty"`
	OutputHash string `json:"outputHash,omitempty"`
	PrevHash   string `json:"prevHash"`
	Hash       string `json:"hash"`
	Signature  string `json:"signature,omitempty"`
	PubKey     string `json:"pubKey,omitempty"`
}

// canonicalData returns the JSON bytes the record hash is computed over.
// It intentionally excludes Hash, Signature and PubKey.
func (r *Record) canonicalData() ([]byte, error) {
	view := struct {
		Index      int    `json:"index"`
		Timestamp  string `json:"timestamp"`
		RunID      string `json:"runId"`
		Pipeline   string `json:"pipeline"`
		Job        string `json:"job"`
		Status     string `json:"status"`
		ExitCode   int    `json:"exitCode"`
		OutputRef  string `json:"outputRef"`
		OutputHash string `json:"outputHash"`
		PrevHash   string `json:"prevHash"`
	}{
		Index:      r.Index,
		Timestamp:  r.Timestamp,
		RunID:      r.RunID,
		Pipeline:   r.Pipeline,
		Job:        r.Job,
		Status:     r.Status,
		ExitCode:   r.ExitCode,
		OutputRef:  r.OutputRef,
		OutputHash: r.OutputHash,
		PrevHash:   r.PrevHash,
	}
	return json.Marshal(view)
}

// ComputeHash calculates sha256 over the record's canonical form.
func (r *Record) ComputeHash() (string, error) {
	data, err := r.canonicalData()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// NewRecord constructs a record for one job outcome and computes its hash.
// Signing happens on append.
func NewRecord(index int, runID, pipeline, job, status string, exitCode int, outputRef, outputHash, prevHash string) (*Record, error) {
	rec := &Record{
		Index:      index,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		RunID:      runID,
		Pipeline:   pipeline,
		Job:        job,
		Status:     status,
		ExitCode:   exitCode,
		OutputRef:  outputRef,
		OutputHash: outputHash,
		PrevHash:   prevHash,
	}

	h, err := rec.ComputeHash()
	if err != nil {
		return nil, errors.Wrap(err, "compute record hash")
	}
	rec.Hash = h
	return rec, nil
}
