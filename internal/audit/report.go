package audit

import (
	"crypto/ed25519"

	"github.com/golang/glog"

	"matrixci/internal/core"
	"matrixci/pkg/utils"
)

// RecordReport appends one signed record per job of a completed run, in the
// report's job order. Serialized so interleaved runs cannot race on the
// chain head.
func (l *Ledger) RecordReport(report *core.RunReport, priv ed25519.PrivateKey, pub ed25519.PublicKey) error {
	l.reportMu.Lock()
	defer l.reportMu.Unlock()

	for _, job := range report.Jobs {
		var outputHash string
		if job.OutputRef != "" {
			h, err := utils.HashFile(job.OutputRef)
			if err != nil {
				glog.Warningf("cannot hash output %s: %v", job.OutputRef, err)
			} else {
				outputHash = h
			}
		}

		rec, err := NewRecord(
			l.NextIndex(),
			report.RunID,
			report.Pipeline,
			job.Spec.Name(),
			string(job.Status),
			job.ExitCode,
			job.OutputRef,
			outputHash,
			l.LastHash(),
		)
		if err != nil {
			return err
		}
		if err := l.Append(rec, priv, pub); err != nil {
			return err
		}
	}
	return nil
}
