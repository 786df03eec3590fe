package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// LogStore writes captured job output under a base directory. The returned
// path is the job's output reference, recorded in reports and the audit
// ledger.
type LogStore struct {
	BaseDir string
}

func NewLogStore(baseDir string) *LogStore {
	return &LogStore{BaseDir: baseDir}
}

// Save writes one job's output and returns its path. Filenames carry the
// sanitized job name, a timestamp and a nanosecond suffix so concurrent
// jobs never collide.
func (s *LogStore) Save(job string, output []byte) (string, error) {
	if err := os.MkdirAll(s.BaseDir, 0o775); err != nil {
		return "", errors.Wrap(err, "create log dir")
	}

	now := time.Now()
	filename := fmt.Sprintf("%s_%s_%d.log",
		sanitize(job), now.Format("20060102_150405"), now.Nanosecond())
	path := filepath.Join(s.BaseDir, filename)

	if err := os.WriteFile(path, output, 0o644); err != nil {
		return "", errors.Wrapf(err, "write log %s", path)
	}
	return path, nil
}

// sanitize strips characters that do not belong in a filename from a job
// name (axis values may contain slashes or anything else the config chose).
func sanitize(name string) string {
	clean := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			clean = append(clean, r)
		default:
			clean = append(clean, '-')
		}
	}
	if len(clean) == 0 {
		return "job"
	}
	return string(clean)
}
