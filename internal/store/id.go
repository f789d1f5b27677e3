package store

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Run ids read as run-<yymmdd>-<suffix>, e.g. run-261019-k3x9a. The day
// stamp is the run's UTC start date.
const (
	RunIDPrefix = "run"

	runIDDateLayout = "060102"
	runSuffixAlpha  = "0123456789abcdefghijklmnopqrstuvwxyz"
	runSuffixLength = 5
	runIDAttempts   = 20

	// minRunRefLength keeps "r" or "run-" from matching every run.
	minRunRefLength = len(RunIDPrefix) + 3
)

var (
	// ErrRunNotFound is returned when no run matches a reference.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousRunRef is returned when a prefix matches several runs.
	ErrAmbiguousRunRef = errors.New("run reference is ambiguous")
)

// NewRunID returns a run id stamped with started's UTC date. exists is
// consulted for collisions; a nil exists accepts the first candidate.
func NewRunID(started time.Time, exists func(string) (bool, error)) (string, error) {
	if started.IsZero() {
		started = time.Now()
	}
	stamp := started.UTC().Format(runIDDateLayout)

	for attempt := 0; attempt < runIDAttempts; attempt++ {
		suffix, err := runSuffix()
		if err != nil {
			return "", fmt.Errorf("generate run id: %w", err)
		}
		id := RunIDPrefix + "-" + stamp + "-" + suffix
		if exists == nil {
			return id, nil
		}
		taken, err := exists(id)
		if err != nil {
			return "", fmt.Errorf("check run id %s: %w", id, err)
		}
		if !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free run id for %s after %d attempts", stamp, runIDAttempts)
}

// GenerateRunID returns an id for a run started at started that is not yet
// recorded.
func (s *Store) GenerateRunID(started time.Time) (string, error) {
	return NewRunID(started, s.RunExists)
}

// ResolveRunID expands ref to a recorded run id. ref is either a full id
// or a prefix of exactly one id.
func (s *Store) ResolveRunID(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("run id is required")
	}
	exact, err := s.RunExists(ref)
	if err != nil {
		return "", err
	}
	if exact {
		return ref, nil
	}
	if len(ref) < minRunRefLength {
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, ref)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE substr(id, 1, ?) = ? ORDER BY id LIMIT 3`, len(ref), ref)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		matches = append(matches, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s matches %s", ErrAmbiguousRunRef, ref, strings.Join(matches, ", "))
	}
}

func runSuffix() (string, error) {
	raw := make([]byte, runSuffixLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	for i, b := range raw {
		raw[i] = runSuffixAlpha[int(b)%len(runSuffixAlpha)]
	}
	return string(raw), nil
}
