package audit

import (
	"github.com/pkg/errors"

	"matrixci/internal/security"
)

// VerifyChain recomputes every record hash and prev-hash link to detect
// tampering with the on-disk ledger.
func (l *Ledger) VerifyChain() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, rec := range l.records {
		h, err := rec.ComputeHash()
		if err != nil {
			return errors.Wrapf(err, "compute hash for index %d", rec.Index)
		}
		if h != rec.Hash {
			return errors.Errorf("hash mismatch at index %d", rec.Index)
		}
		if i > 0 && rec.PrevHash != l.records[i-1].Hash {
			return errors.Errorf("prev hash mismatch at index %d", rec.Index)
		}
		if rec.Index != i {
			return errors.Errorf("index mismatch: expected %d, got %d", i, rec.Index)
		}
	}
	return nil
}

// VerifySignatures checks every record's signature against the public key
// embedded in it. Separate from VerifyChain so an offline verifier without
// the chain context can still check authorship.
func (l *Ledger) VerifySignatures() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, rec := range l.records {
		if rec.Signature == "" || rec.PubKey == "" {
			return errors.Errorf("record %d is unsigned", rec.Index)
		}
		ok, err := security.VerifySignatureFromHex(rec.PubKey, []byte(rec.Hash), rec.Signature)
		if err != nil {
			return errors.Wrapf(err, "verify signature at index %d", rec.Index)
		}
		if !ok {
			return errors.Errorf("signature mismatch at index %d", rec.Index)
		}
	}
	return nil
}
