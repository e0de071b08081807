package executor

import (
	"time"

	"github.com/google/uuid"

	"backupmgr/internal/backup"
)

// Report is the aggregate result of one run. Outcomes follow the order of
// the jobs given to Run; jobs that were not due have no outcome.
type Report struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []backup.Outcome
}

func (r *Report) Counts() map[backup.Status]int {
	counts := map[backup.Status]int{
		backup.StatusSucceeded: 0,
		backup.StatusFailed:    0,
		backup.StatusSkipped:   0,
	}
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}

// Failed returns the outcomes with StatusFailed.
func (r *Report) Failed() []backup.Outcome {
	var out []backup.Outcome
	for _, o := range r.Outcomes {
		if o.Status == backup.StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

func (r *Report) HasFailures() bool { return len(r.Failed()) > 0 }

// ByJob indexes outcomes by job id, falling back to the name for unsaved jobs.
func (r *Report) ByJob() map[string]backup.Outcome {
	m := make(map[string]backup.Outcome, len(r.Outcomes))
	for _, o := range r.Outcomes {
		key := o.JobID
		if key == "" {
			key = o.Name
		}
		m[key] = o
	}
	return m
}

func (r *Report) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

type multiRecorder []Recorder

func (m multiRecorder) Record(o backup.Outcome) {
	for _, r := range m {
		r.Record(o)
	}
}

func (m multiRecorder) RunFinished(rep *Report) {
	for _, r := range m {
		r.RunFinished(rep)
	}
}

// Recorders fans out to every non-nil recorder.
func Recorders(rs ...Recorder) Recorder {
	out := make(multiRecorder, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
