package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"backupmgr/internal/job"
)

// ErrNotFound is returned when no task has the requested id.
var ErrNotFound = errors.New("task not found")

// Store is the SQLite-backed job registry.
type Store struct {
	db   *sql.DB
	path string
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

const selectTasks = `SELECT task_id, task_name, task_type, schedule_type, source, destination, enabled FROM tasks`

// ListActive returns the enabled jobs, ordered by id.
func (s *Store) ListActive(ctx context.Context) ([]job.Job, error) {
	return s.List(ctx, true)
}

// List returns jobs ordered by id. Rows are decoded leniently: an unknown
// kind or recurrence is kept as stored so the run can report it.
func (s *Store) List(ctx context.Context, activeOnly bool) ([]job.Job, error) {
	query := selectTasks
	if activeOnly {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY task_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("registry: list tasks: %w", err)
	}
	defer rows.Close()

	var jobs []job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("registry: list tasks: %w", err)
	}
	return jobs, nil
}

func (s *Store) Get(ctx context.Context, id string) (job.Job, error) {
	n, err := parseID(id)
	if err != nil {
		return job.Job{}, err
	}
	row := s.db.QueryRowContext(ctx, selectTasks+` WHERE task_id = ?`, n)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return job.Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return j, err
}

// Add stores j and returns it with its assigned id.
func (s *Store) Add(ctx context.Context, j job.Job) (job.Job, error) {
	if j.Source == nil {
		return job.Job{}, errors.New("registry: job has no source")
	}
	source, err := json.Marshal(j.Source)
	if err != nil {
		return job.Job{}, fmt.Errorf("registry: encode source: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (task_name, task_type, schedule_type, source, destination, enabled) VALUES (?, ?, ?, ?, ?, ?)`,
		j.Name, string(j.Kind), string(j.Recurrence), string(source), j.Destination, j.Enabled,
	)
	if err != nil {
		return job.Job{}, fmt.Errorf("registry: insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return job.Job{}, fmt.Errorf("registry: insert task: %w", err)
	}
	j.ID = strconv.FormatInt(id, 10)
	return j, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE task_id = ?`, n)
	if err != nil {
		return fmt.Errorf("registry: delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("registry: delete task: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// SetEnabled toggles whether a task takes part in runs.
func (s *Store) SetEnabled(ctx context.Context, id string, enabled bool) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET enabled = ? WHERE task_id = ?`, enabled, n)
	if err != nil {
		return fmt.Errorf("registry: update task: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (job.Job, error) {
	var (
		id                             int64
		name, kind, recurrence, source string
		destination                    string
		enabled                        bool
	)
	if err := row.Scan(&id, &name, &kind, &recurrence, &source, &destination, &enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return job.Job{}, err
		}
		return job.Job{}, fmt.Errorf("registry: scan task: %w", err)
	}

	j := job.Job{
		ID:          strconv.FormatInt(id, 10),
		Name:        name,
		Kind:        job.ParseKind(kind),
		Recurrence:  job.ParseRecurrence(recurrence),
		Enabled:     enabled,
		Destination: destination,
	}
	// A source that does not decode is left nil; the strategy reports it.
	if cfg, err := job.ConfigFromJSON(j.Kind, []byte(source)); err == nil {
		j.Source = cfg
	}
	return j, nil
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}
	return n, nil
}
