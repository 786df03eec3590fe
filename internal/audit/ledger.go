package audit

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// Ledger is an append-only, hash-chained log of job outcomes. On-disk format
// is JSON lines, one record per line.
type Ledger struct {
	mu       sync.Mutex
	reportMu sync.Mutex
	records  []*Record
	path     string
}

// Open loads an existing ledger file or creates an empty one.
func Open(path string) (*Ledger, error) {
	l := &Ledger{
		records: make([]*Record, 0),
		path:    path,
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, errors.Wrap(err, "create ledger file")
		}
		_ = f.Close()
		return l, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read ledger file")
	}
	if len(data) == 0 {
		return l, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return nil, errors.Wrap(err, "decode ledger entry")
		}
		l.records = append(l.records, &rec)
	}
	return l, nil
}

// Append signs the record with the server's private key, links it to the
// chain, persists it and keeps it in memory.
func (l *Ledger) Append(rec *Record, priv ed25519.PrivateKey, pub ed25519.PublicKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// recompute so canonical fields and hash always agree
	h, err := rec.ComputeHash()
	if err != nil {
		return errors.Wrap(err, "recompute record hash")
	}
	rec.Hash = h

	if len(l.records) > 0 {
		last := l.records[len(l.records)-1]
		if rec.PrevHash != last.Hash {
			return errors.Errorf("prevHash mismatch: expected %s, got %s", last.Hash, rec.PrevHash)
		}
	}

	if len(priv) == 0 {
		return errors.New("private key is empty, cannot sign record")
	}
	rec.Signature = hex.EncodeToString(ed25519.Sign(priv, []byte(rec.Hash)))
	rec.PubKey = hex.EncodeToString(pub)

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "open ledger file")
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(rec); err != nil {
		return errors.Wrap(err, "write ledger file")
	}

	l.records = append(l.records, rec)
	return nil
}

// Records returns the in-memory chain.
func (l *Ledger) Records() []*Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.records
}

// NextIndex returns the index the next appended record must carry.
func (l *Ledger) NextIndex() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// LastHash returns the newest record's hash, or empty for a fresh ledger.
func (l *Ledger) LastHash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.records) == 0 {
		return ""
	}
	return l.records[len(l.records)-1].Hash
}
