// Package gamification implements the points, streak, achievement, and daily
// check-in logic behind the reading dashboard. Totals are never cached: every
// stats request recomputes from the underlying book, note, session, and
// check-in rows.
package gamification

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Config tunes an Engine. Zero values fall back to sensible defaults so
// tests can construct engines with only the fields they care about.
type Config struct {
	// CheckinPoints is the reward recorded on each daily check-in row.
	CheckinPoints int
	// Clock returns the current time. Defaults to time.Now; tests inject a
	// fixed clock to make streak math deterministic.
	Clock func() time.Time
}

// Engine evaluates gamification state for users. All methods are safe for
// concurrent use; the only write paths (check-in and achievement unlock) are
// guarded by database unique constraints rather than in-process locks.
type Engine struct {
	db            *gorm.DB
	now           func() time.Time
	checkinPoints int
}

// New creates an Engine on top of the given database handle.
func New(db *gorm.DB, cfg Config) *Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	points := cfg.CheckinPoints
	if points <= 0 {
		points = 10
	}
	return &Engine{
		db:            db,
		now:           clock,
		checkinPoints: points,
	}
}

// dayStart truncates t to midnight in its own location.
func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// dayNumber maps t onto a calendar day counter that is immune to DST shifts,
// so "one day apart" is always a difference of exactly 1.
func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func sameDay(a, b time.Time) bool {
	return dayNumber(a) == dayNumber(b)
}

// isDuplicateKeyError reports whether err came from a unique constraint
// violation, across the drivers we run against.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key")
}
