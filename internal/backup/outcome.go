package backup

import (
	"time"

	"backupmgr/internal/job"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

func (s Status) String() string { return string(s) }

// Artifact is what a strategy produced under the job destination.
type Artifact struct {
	Path string
	// Size in bytes, zero when the artifact is written somewhere this
	// process cannot stat (for example a database server's own disk).
	Size int64
}

// Outcome is the result of one job within a run.
type Outcome struct {
	JobID      string
	Name       string
	Kind       job.Kind
	Recurrence job.Recurrence
	Status     Status
	Err        error
	Artifact   *Artifact
	Duration   time.Duration

	Pruned      int
	PruneErrors []error
}

func (o Outcome) Succeeded() bool { return o.Status == StatusSucceeded }
