package retention

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// DefaultKeep is the number of entries kept per destination unless configured.
const DefaultKeep = 7

// RemoveError reports one entry that could not be deleted.
type RemoveError struct {
	Path string
	Err  error
}

func (e *RemoveError) Error() string {
	return fmt.Sprintf("failed to remove %s: %v", e.Path, e.Err)
}

func (e *RemoveError) Unwrap() error { return e.Err }

// Result describes one pruning pass.
type Result struct {
	Destination string
	// Missing is set when the destination does not exist; nothing was done.
	Missing  bool
	Kept     int
	Removed  []string
	Failures []*RemoveError
}

// Err joins every removal failure, or returns nil.
func (r *Result) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// Manager keeps the newest Keep entries of a destination and deletes the rest.
type Manager struct {
	keep   int
	logger zerolog.Logger
	remove func(string) error
}

func New(keep int, logger zerolog.Logger) (*Manager, error) {
	if keep < 1 {
		return nil, fmt.Errorf("retention must be at least 1, got %d", keep)
	}
	return &Manager{
		keep:   keep,
		logger: logger.With().Str("component", "retention").Logger(),
		remove: os.RemoveAll,
	}, nil
}

func (m *Manager) Keep() int { return m.keep }

type entry struct {
	path    string
	modTime time.Time
}

// Prune lists the immediate entries of destination, oldest modification time
// first, and removes from the oldest end until Keep remain. A failed removal
// is recorded and the next entry is still attempted. A missing destination
// is logged and is not an error; an unreadable one is.
func (m *Manager) Prune(destination string) (*Result, error) {
	res := &Result{Destination: destination}

	dirents, err := os.ReadDir(destination)
	if errors.Is(err, fs.ErrNotExist) {
		m.logger.Warn().Str("destination", destination).Msg("backup destination does not exist, nothing to prune")
		res.Missing = true
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", destination, err)
	}

	entries := make([]entry, 0, len(dirents))
	for _, d := range dirents {
		p := filepath.Join(destination, d.Name())
		fi, err := os.Stat(p)
		if err != nil {
			// dangling symlink: order it by the link itself
			if fi, err = d.Info(); err != nil {
				return nil, fmt.Errorf("failed to stat %s: %w", p, err)
			}
		}
		entries = append(entries, entry{path: p, modTime: fi.ModTime()})
	}

	if len(entries) <= m.keep {
		res.Kept = len(entries)
		return res, nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].modTime.Before(entries[j].modTime)
	})

	excess := len(entries) - m.keep
	for _, e := range entries[:excess] {
		if err := m.remove(e.path); err != nil {
			m.logger.Error().Err(err).Str("path", e.path).Msg("failed to remove old backup")
			res.Failures = append(res.Failures, &RemoveError{Path: e.path, Err: err})
			continue
		}
		m.logger.Info().Str("path", e.path).Msg("removed old backup")
		res.Removed = append(res.Removed, e.path)
	}
	res.Kept = len(entries) - len(res.Removed)
	return res, nil
}
