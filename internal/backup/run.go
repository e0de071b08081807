package backup

import (
	"time"

	"github.com/google/uuid"

	"backupmgr/pkg/names"
)

// RunContext is fixed once per orchestration run and shared read-only by
// every unit in it.
type RunContext struct {
	ID        uuid.UUID
	StartedAt time.Time
	Stamp     string
}

func NewRunContext(now time.Time) RunContext {
	return RunContext{
		ID:        uuid.New(),
		StartedAt: now,
		Stamp:     names.Stamp(now),
	}
}
