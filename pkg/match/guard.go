// Package match evaluates glob patterns against object paths.
//
// The replication service uses it as an admission guard: a requested
// "bucket/key" pair must match the configured include patterns (and no
// exclude pattern) before a replication is attempted. With no includes
// configured the guard admits everything.
package match

import (
	"errors"

	"github.com/bmatcuk/doublestar/v4"
)

// Guard evaluates include/exclude patterns against "bucket/key" paths.
//
//   - Include patterns: the path must match at least one (empty list
//     admits all paths)
//   - Exclude patterns: the path must not match any
//
// The Guard is safe for concurrent use after creation.
type Guard struct {
	includes []string
	excludes []string
}

// Config configures a Guard.
type Config struct {
	// Includes are glob patterns the path must match (at least one).
	// Empty means allow all.
	Includes []string

	// Excludes are glob patterns the path must not match (any).
	// Optional: if empty, no excludes are applied.
	Excludes []string
}

// ErrInvalidPattern is returned when a pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// PatternError wraps pattern-related errors with context.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// New creates a Guard, validating every pattern up front.
func New(cfg Config) (*Guard, error) {
	for _, raw := range append(append([]string{}, cfg.Includes...), cfg.Excludes...) {
		if !doublestar.ValidatePattern(raw) {
			return nil, &PatternError{Pattern: raw, Err: ErrInvalidPattern}
		}
	}
	return &Guard{includes: cfg.Includes, excludes: cfg.Excludes}, nil
}

// Admit returns true if bucket/key passes the include/exclude patterns.
//
// Keys are matched as-is: object keys are opaque strings where any
// character is valid.
func (g *Guard) Admit(bucket, key string) bool {
	path := bucket + "/" + key

	for _, pat := range g.excludes {
		if ok, _ := doublestar.Match(pat, path); ok {
			return false
		}
	}

	if len(g.includes) == 0 {
		return true
	}
	for _, pat := range g.includes {
		if ok, _ := doublestar.Match(pat, path); ok {
			return true
		}
	}
	return false
}
