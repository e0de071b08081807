package job

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is matched by every *ValidationError.
var ErrInvalid = errors.New("invalid job")

// ValidationError reports a job field that failed validation at construction.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

// Params are the raw inputs for a new job, as typed by a user or read from storage.
type Params struct {
	ID          string
	Name        string
	Kind        string
	Recurrence  string
	Enabled     bool
	Source      map[string]any
	Destination string
}

// New validates p and builds a Job. Kind and recurrence must be members of
// their enums; nothing is coerced.
func New(p Params) (Job, error) {
	kind := ParseKind(p.Kind)
	if !kind.Valid() {
		return Job{}, &ValidationError{Field: "kind", Value: p.Kind, Err: fmt.Errorf("must be one of %s", kindList())}
	}

	recurrence := ParseRecurrence(p.Recurrence)
	if !recurrence.Valid() {
		return Job{}, &ValidationError{Field: "recurrence", Value: p.Recurrence, Err: errors.New("must be daily, weekly or monthly")}
	}

	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		return Job{}, &ValidationError{Field: "name", Err: errors.New("is required")}
	}

	if strings.TrimSpace(p.Destination) == "" {
		return Job{}, &ValidationError{Field: "destination", Err: errors.New("is required")}
	}

	source, err := ConfigFromMap(kind, p.Source)
	if err != nil {
		return Job{}, &ValidationError{Field: "source", Err: err}
	}
	if err := source.Validate(); err != nil {
		return Job{}, &ValidationError{Field: "source", Err: err}
	}

	return Job{
		ID:          p.ID,
		Name:        name,
		Kind:        kind,
		Recurrence:  recurrence,
		Enabled:     p.Enabled,
		Source:      source,
		Destination: p.Destination,
	}, nil
}

func kindList() string {
	names := make([]string, 0, len(configFactories))
	for _, k := range Kinds() {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}
