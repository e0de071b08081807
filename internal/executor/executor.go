package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"backupmgr/internal/backup"
	"backupmgr/internal/job"
	"backupmgr/internal/retention"
	"backupmgr/internal/schedule"
)

// Selector resolves the strategy for a job kind.
type Selector interface {
	Select(kind job.Kind) (backup.Strategy, error)
}

// Pruner applies retention to a destination.
type Pruner interface {
	Prune(destination string) (*retention.Result, error)
}

// Recorder observes outcomes. Record is called concurrently from units.
type Recorder interface {
	Record(o backup.Outcome)
	RunFinished(r *Report)
}

type Options struct {
	Strategies Selector
	// Pruner is optional; without it no retention is applied.
	Pruner   Pruner
	Recorder Recorder
	// MaxParallel caps in-flight units. Zero runs every due job at once.
	MaxParallel int
	Logger      zerolog.Logger
	Now         func() time.Time
}

// Executor runs every due job of a run concurrently and waits for all of
// them. A failing or panicking job never affects the others.
type Executor struct {
	strategies  Selector
	pruner      Pruner
	recorder    Recorder
	maxParallel int
	logger      zerolog.Logger
	now         func() time.Time
}

func New(opts Options) (*Executor, error) {
	if opts.Strategies == nil {
		return nil, errors.New("executor: strategies are required")
	}
	if opts.MaxParallel < 0 {
		return nil, fmt.Errorf("executor: max parallel must not be negative, got %d", opts.MaxParallel)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Executor{
		strategies:  opts.Strategies,
		pruner:      opts.Pruner,
		recorder:    opts.Recorder,
		maxParallel: opts.MaxParallel,
		logger:      opts.Logger,
		now:         opts.Now,
	}, nil
}

// Run evaluates which jobs are due on rc.StartedAt, executes them and
// returns once every unit has finished. Jobs with an unknown recurrence are
// reported as skipped with the evaluation error.
func (e *Executor) Run(ctx context.Context, jobs []job.Job, rc backup.RunContext) *Report {
	logger := e.logger.With().Str("run_id", rc.ID.String()).Logger()
	report := &Report{RunID: rc.ID, StartedAt: rc.StartedAt}

	type slot struct {
		job job.Job
		due bool
		err error
	}
	var slots []slot
	for _, j := range jobs {
		if !j.Enabled {
			continue
		}
		due, err := schedule.IsDue(j.Recurrence, rc.StartedAt)
		if err != nil {
			logger.Error().Err(err).Str("job", j.Name).Msg("cannot evaluate schedule, skipping job")
			slots = append(slots, slot{job: j, err: err})
			continue
		}
		if !due {
			logger.Debug().Str("job", j.Name).Str("recurrence", j.Recurrence.String()).Msg("job not due today")
			continue
		}
		slots = append(slots, slot{job: j, due: true})
	}

	logger.Info().Int("jobs", len(jobs)).Int("due", len(slots)).Str("stamp", rc.Stamp).Msg("run started")

	outcomes := make([]backup.Outcome, len(slots))

	var g errgroup.Group
	if e.maxParallel > 0 {
		g.SetLimit(e.maxParallel)
	}
	for i, s := range slots {
		if !s.due {
			outcomes[i] = skipped(s.job, s.err)
			e.record(outcomes[i])
			continue
		}
		i, s := i, s
		g.Go(func() error {
			outcomes[i] = e.unit(ctx, logger, s.job, rc)
			e.record(outcomes[i])
			return nil
		})
	}
	_ = g.Wait()

	report.Outcomes = outcomes
	report.FinishedAt = e.now()

	counts := report.Counts()
	logger.Info().
		Int("succeeded", counts[backup.StatusSucceeded]).
		Int("failed", counts[backup.StatusFailed]).
		Int("skipped", counts[backup.StatusSkipped]).
		Dur("duration", report.Duration()).
		Msg("run finished")

	if e.recorder != nil {
		e.recorder.RunFinished(report)
	}
	return report
}

// unit executes one job and, for daily jobs that succeeded, prunes its
// destination. Every error and panic ends up in the returned outcome.
func (e *Executor) unit(ctx context.Context, parent zerolog.Logger, j job.Job, rc backup.RunContext) (out backup.Outcome) {
	logger := parent.With().
		Str("job", j.Name).
		Str("job_id", j.ID).
		Str("kind", j.Kind.String()).
		Str("recurrence", j.Recurrence.String()).
		Logger()
	ctx = logger.WithContext(ctx)

	out = backup.Outcome{
		JobID:      j.ID,
		Name:       j.Name,
		Kind:       j.Kind,
		Recurrence: j.Recurrence,
	}
	start := e.now()
	defer func() { out.Duration = e.now().Sub(start) }()

	if err := ctx.Err(); err != nil {
		out.Status = backup.StatusSkipped
		out.Err = err
		logger.Warn().Err(err).Msg("run canceled before job started")
		return out
	}

	var artifact *backup.Artifact
	err := protect(func() error {
		strategy, err := e.strategies.Select(j.Kind)
		if err != nil {
			return err
		}
		artifact, err = strategy.Execute(ctx, j, rc)
		return err
	})
	if err != nil {
		out.Status = backup.StatusFailed
		out.Err = err
		ev := logger.Error().Err(err)
		var perr *backup.PanicError
		if errors.As(err, &perr) {
			ev = ev.Bytes("stack", perr.Stack)
		}
		ev.Msg("backup failed")
		return out
	}

	out.Status = backup.StatusSucceeded
	out.Artifact = artifact
	ev := logger.Info()
	if artifact != nil {
		ev = ev.Str("artifact", artifact.Path).Int64("size", artifact.Size)
	}
	ev.Msg("backup succeeded")

	// Only daily jobs are pruned; weekly and monthly destinations grow unbounded.
	if j.Recurrence == job.Daily && e.pruner != nil {
		e.prune(logger, j, &out)
	}
	return out
}

func (e *Executor) prune(logger zerolog.Logger, j job.Job, out *backup.Outcome) {
	var res *retention.Result
	err := protect(func() error {
		var err error
		res, err = e.pruner.Prune(j.Destination)
		return err
	})
	if err != nil {
		logger.Error().Err(err).Str("destination", j.Destination).Msg("retention failed")
		out.PruneErrors = append(out.PruneErrors, err)
		return
	}
	if res == nil {
		return
	}
	out.Pruned = len(res.Removed)
	for _, f := range res.Failures {
		out.PruneErrors = append(out.PruneErrors, f)
	}
	if len(res.Removed) > 0 || len(res.Failures) > 0 {
		logger.Info().Int("removed", len(res.Removed)).Int("failures", len(res.Failures)).Int("kept", res.Kept).Msg("retention applied")
	}
}

func (e *Executor) record(o backup.Outcome) {
	if e.recorder != nil {
		e.recorder.Record(o)
	}
}

func skipped(j job.Job, err error) backup.Outcome {
	return backup.Outcome{
		JobID:      j.ID,
		Name:       j.Name,
		Kind:       j.Kind,
		Recurrence: j.Recurrence,
		Status:     backup.StatusSkipped,
		Err:        err,
	}
}

// protect runs fn and turns a panic into a *backup.PanicError.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &backup.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
