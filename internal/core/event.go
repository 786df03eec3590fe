package core

// Event is the snapshot of an incoming change notification, as delivered by
// the hosting platform's webhook. Triggers are evaluated against it; nothing
// in the orchestrator mutates it.
type Event struct {
	Source       string   `json:"source,omitempty"`
	Kind         string   `json:"kind"`
	Labels       []string `json:"labels,omitempty"`
	ChangedPaths []string `json:"changedPaths,omitempty"`

	// Change identifies the logical change the event belongs to (e.g. a pull
	// request number). A newer accepted event for the same change supersedes
	// any in-flight run for it. Empty means no supersede relationship.
	Change string `json:"change,omitempty"`
}

// HasLabel reports whether the event carries the named label.
func (e Event) HasLabel(name string) bool {
	for _, l := range e.Labels {
		if l == name {
			return true
		}
	}
	return false
}
