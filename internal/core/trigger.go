package core

import (
	"path"
	"strings"
)

// Trigger gates whether an event starts a run.
type Trigger struct {
	// Kind is the event kind this trigger fires on, e.g. "pull_request".
	Kind string `yaml:"kind" json:"kind" validate:"required"`

	// Label, when set, must be present in the event's label set.
	Label string `yaml:"label,omitempty" json:"label,omitempty"`

	// Paths, when set, requires at least one changed path to match at least
	// one of these glob patterns.
	Paths []string `yaml:"paths,omitempty" json:"paths,omitempty"`
}

// Evaluate reports whether ev should start a run. It is total: an event
// missing any field the trigger needs evaluates to false, it never fails.
func (t Trigger) Evaluate(ev Event) bool {
	if t.Kind == "" || ev.Kind == "" || t.Kind != ev.Kind {
		return false
	}
	if t.Label != "" && !ev.HasLabel(t.Label) {
		return false
	}
	if len(t.Paths) == 0 {
		return true
	}
	for _, pattern := range t.Paths {
		for _, changed := range ev.ChangedPaths {
			if matchPath(pattern, changed) {
				return true
			}
		}
	}
	return false
}

// matchPath matches one changed path against one glob pattern. A trailing
// "/**" matches the whole subtree; otherwise path.Match semantics apply.
// Malformed patterns match nothing.
func matchPath(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		return p == prefix || strings.HasPrefix(p, prefix+"/")
	}
	ok, err := path.Match(pattern, p)
	return err == nil && ok
}
