package backup

import (
	"context"
	"fmt"

	"backupmgr/internal/job"
)

// Strategy performs the backup for one job kind. Implementations must be
// safe for concurrent use by several jobs in the same run.
type Strategy interface {
	Kind() job.Kind
	Execute(ctx context.Context, j job.Job, rc RunContext) (*Artifact, error)
}

// Dispatcher maps job kinds to strategies.
type Dispatcher struct {
	strategies map[job.Kind]Strategy
}

// NewDispatcher registers strategies by their kind. Registering two
// strategies for the same kind panics.
func NewDispatcher(strategies ...Strategy) *Dispatcher {
	d := &Dispatcher{strategies: make(map[job.Kind]Strategy, len(strategies))}
	for _, s := range strategies {
		if _, dup := d.strategies[s.Kind()]; dup {
			panic(fmt.Sprintf("backup: duplicate strategy for kind %q", s.Kind()))
		}
		d.strategies[s.Kind()] = s
	}
	return d
}

// Select returns the strategy for kind or an *UnknownStrategyError.
func (d *Dispatcher) Select(kind job.Kind) (Strategy, error) {
	s, ok := d.strategies[kind]
	if !ok {
		return nil, &UnknownStrategyError{Kind: kind}
	}
	return s, nil
}
