package schedule

import (
	"errors"
	"fmt"
	"time"

	"backupmgr/internal/job"
)

// ErrUnknownRecurrence is returned for recurrences outside the job enum.
var ErrUnknownRecurrence = errors.New("unknown recurrence")

// IsDue reports whether a job with recurrence r runs on the calendar day of
// today. Only the date part of today is consulted, in its own location.
//
// daily is always due, weekly is due on Mondays and monthly on the first
// day of the month.
func IsDue(r job.Recurrence, today time.Time) (bool, error) {
	switch r {
	case job.Daily:
		return true, nil
	case job.Weekly:
		return today.Weekday() == time.Monday, nil
	case job.Monthly:
		return today.Day() == 1, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownRecurrence, string(r))
	}
}
