package job

import (
	"fmt"
	"strings"
)

// Kind selects the backup strategy for a job.
type Kind string

const (
	KindFile     Kind = "file"
	KindDatabase Kind = "database"
	KindS3       Kind = "s3"
)

func (k Kind) String() string { return string(k) }

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := configFactories[k]
	return ok
}

// kindAliases maps names used by older registries onto current kinds.
var kindAliases = map[string]Kind{
	"mssql": KindDatabase,
}

// ParseKind normalizes s and resolves legacy aliases. Unknown values are
// returned as-is so callers can decide how to report them.
func ParseKind(s string) Kind {
	s = strings.ToLower(strings.TrimSpace(s))
	if k, ok := kindAliases[s]; ok {
		return k
	}
	return Kind(s)
}

// Recurrence is how often a job runs.
type Recurrence string

const (
	Daily   Recurrence = "daily"
	Weekly  Recurrence = "weekly"
	Monthly Recurrence = "monthly"
)

func (r Recurrence) String() string { return string(r) }

// Valid reports whether r is a known recurrence.
func (r Recurrence) Valid() bool {
	switch r {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

// ParseRecurrence normalizes s without validating it.
func ParseRecurrence(s string) Recurrence {
	return Recurrence(strings.ToLower(strings.TrimSpace(s)))
}

// Config is the interface that all kind-specific source configs must implement
type Config interface {
	Validate() error
	Kind() Kind
}

// Job describes one backup job. It is treated as read-only for the duration of a run.
type Job struct {
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name"`
	Kind        Kind       `json:"kind"`
	Recurrence  Recurrence `json:"recurrence"`
	Enabled     bool       `json:"enabled"`
	Source      Config     `json:"source"`
	Destination string     `json:"destination"`
}

// String renders the job the way `task list` prints it.
func (j Job) String() string {
	id := j.ID
	if id == "" {
		id = "-"
	}
	active := "-"
	if j.Enabled {
		active = "A"
	}
	return fmt.Sprintf("%s\t%-8s\t%-7s\t%s\t'%s'", id, j.Kind, j.Recurrence, active, j.Name)
}

// Key identifies the job inside one run's report. Unsaved jobs fall back to their name.
func (j Job) Key() string {
	if j.ID != "" {
		return j.ID
	}
	return j.Name
}
