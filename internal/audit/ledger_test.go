package audit

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"matrixci/internal/core"
	"matrixci/internal/security"
	"matrixci/pkg/utils"
)

func TestNewRecordAndHash(t *testing.T) {
	rec, err := NewRecord(
		0, "run-1", "verify", "stable/linux", "succeeded", 0,
		"", utils.HashString("hello build"), "")
	require.NoError(t, err)

	h, err := rec.ComputeHash()
	require.NoError(t, err)
	require.Equal(t, rec.Hash, h)
}

func TestLedgerAppendAndVerify(t *testing.T) {
	ledger, err := Open(filepath.Join(t.TempDir(), "ledger.jsonl"))
	require.NoError(t, err)

	pub, priv, err := security.GenerateKeyPair()
	require.NoError(t, err)

	r1, err := NewRecord(
		0, "run-1", "verify", "stable/linux", "succeeded", 0,
		"", utils.HashString("out 1"), "")
	require.NoError(t, err)
	require.NoError(t, ledger.Append(r1, priv, pub))

	r2, err := NewRecord(
		1, "run-1", "verify", "nightly/linux", "failed", 101,
		"", utils.HashString("out 2"), r1.Hash)
	require.NoError(t, err)
	require.NoError(t, ledger.Append(r2, priv, pub))

	require.NoError(t, ledger.VerifyChain())
	require.NoError(t, ledger.VerifySignatures())
}

func TestLedgerTamperingDetection(t *testing.T) {
	ledger, err := Open(filepath.Join(t.TempDir(), "ledger.jsonl"))
	require.NoError(t, err)

	pub, priv, err := security.GenerateKeyPair()
	require.NoError(t, err)

	rec, err := NewRecord(
		0, "run-1", "verify", "nightly/windows", "succeeded", 0,
		"", utils.HashString("secure output"), "")
	require.NoError(t, err)
	require.NoError(t, ledger.Append(rec, priv, pub))

	// rewrite history
	ledger.Records()[0].Status = "failed"

	require.Error(t, ledger.VerifyChain())
}

func TestLedgerRejectsBrokenLink(t *testing.T) {
	ledger, err := Open(filepath.Join(t.TempDir(), "ledger.jsonl"))
	require.NoError(t, err)

	pub, priv, err := security.GenerateKeyPair()
	require.NoError(t, err)

	r1, err := NewRecord(
		0, "run-1", "verify", "stable/linux", "succeeded", 0, "", "", "")
	require.NoError(t, err)
	require.NoError(t, ledger.Append(r1, priv, pub))

	r2, err := NewRecord(
		1, "run-1", "verify", "nightly/linux", "succeeded", 0, "", "", "bogus-prev-hash")
	require.NoError(t, err)
	require.Error(t, ledger.Append(r2, priv, pub))
}

func TestLedgerPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	ledger, err := Open(path)
	require.NoError(t, err)

	pub, priv, err := security.GenerateKeyPair()
	require.NoError(t, err)

	rec, err := NewRecord(
		0, "run-1", "verify", "stable/linux", "succeeded", 0,
		"", utils.HashString("persisted"), "")
	require.NoError(t, err)
	require.NoError(t, ledger.Append(rec, priv, pub))

	reopened, err := Open(path)
	require.NoError(t, err)
	require.Len(t, reopened.Records(), 1)
	require.NoError(t, reopened.VerifyChain())
	require.NoError(t, reopened.VerifySignatures())
}

func TestRecordReport(t *testing.T) {
	ledger, err := Open(filepath.Join(t.TempDir(), "ledger.jsonl"))
	require.NoError(t, err)

	pub, priv, err := security.GenerateKeyPair()
	require.NoError(t, err)

	report := &core.RunReport{
		RunID:    "run-1",
		Pipeline: "verify",
		Status:   core.RunFailed,
		Jobs: []core.JobResult{
			{
				Spec:   core.JobSpec{Index: 0, Tuple: []string{"stable", "linux"}},
				Status: core.StatusSucceeded,
			},
			{
				Spec:     core.JobSpec{Index: 1, Tuple: []string{"nightly", "linux"}},
				Status:   core.StatusFailed,
				ExitCode: 101,
			},
		},
	}
	require.NoError(t, ledger.RecordReport(report, priv, pub))

	records := ledger.Records()
	require.Len(t, records, 2)
	require.Equal(t, "stable/linux", records[0].Job)
	require.Equal(t, "succeeded", records[0].Status)
	require.Equal(t, "nightly/linux", records[1].Job)
	require.Equal(t, "failed", records[1].Status)
	require.Equal(t, records[0].Hash, records[1].PrevHash)
	require.NoError(t, ledger.VerifyChain())
}
