package publish

import (
	"time"
)

// Level grades a report entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Entry is one condition observed during a publish pass.
type Entry struct {
	InstanceID string `json:"instance_id,omitempty"`
	Subset     string `json:"subset,omitempty"`
	Plugin     string `json:"plugin,omitempty"`
	Level      Level  `json:"level"`
	Message    string `json:"message"`
	ErrorKind  string `json:"error_kind,omitempty"`
}

// InstanceResult summarises one instance.
type InstanceResult struct {
	InstanceID      string   `json:"instance_id"`
	Subset          string   `json:"subset"`
	Family          string   `json:"family"`
	Plugins         []string `json:"plugins,omitempty"`
	Representations int      `json:"representations"`
	Manifest        string   `json:"manifest,omitempty"`
	Failed          bool     `json:"failed"`
	Skipped         bool     `json:"skipped,omitempty"`
}

// Report is the outcome of Run.
type Report struct {
	RequestID  string           `json:"request_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Instances  []InstanceResult `json:"instances"`
	Entries    []Entry          `json:"entries"`
}

// Count returns the number of entries at level.
func (r *Report) Count(level Level) int {
	n := 0
	for _, e := range r.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// HasErrors reports whether any entry is an error.
func (r *Report) HasErrors() bool {
	return r.Count(LevelError) > 0
}

// Failed returns the instances that did not publish cleanly.
func (r *Report) Failed() []InstanceResult {
	var out []InstanceResult
	for _, res := range r.Instances {
		if res.Failed {
			out = append(out, res)
		}
	}
	return out
}

func (r *Report) add(e Entry) {
	r.Entries = append(r.Entries, e)
}
