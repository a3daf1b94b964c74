package gamification

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shelfquest/api/models"
)

// RecordActivity bumps the per-day activity counter for the user's current
// calendar day. Adding a book, writing a note or highlight, logging a
// session, and checking in all route through here, which is what makes the
// streak activity-based instead of a single button.
//
// Best-effort: a failed upsert is logged, never surfaced to the request that
// triggered it.
func (e *Engine) RecordActivity(userID uint) {
	if err := recordActivityTx(e.db, userID, dayStart(e.now())); err != nil {
		logWarn("record daily activity", err)
	}
}

// RecordActivityOn bumps the activity counter for an explicit calendar day.
// Sessions logged for a past date count toward that day, not the day the
// request arrived.
func (e *Engine) RecordActivityOn(userID uint, day time.Time) {
	if err := recordActivityTx(e.db, userID, dayStart(day)); err != nil {
		logWarn("record daily activity", err)
	}
}

// recordActivityTx performs the upsert on the given handle so check-in can
// run it inside its own transaction.
func recordActivityTx(db *gorm.DB, userID uint, day time.Time) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "streak_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": time.Now()}),
	}).Create(&models.DailyActivity{UserID: userID, StreakDate: day, Count: 1}).Error
}

// Streak counts consecutive days of activity ending today. It walks the
// per-day activity rows newest first: a row exactly `streak` days before
// today extends the run, a larger gap ends it, and no rows at all is a
// streak of zero.
//
// If the activity table cannot be read, the walk falls back to raw session
// dates. Sessions alone undercount days where the user only wrote notes or
// checked in, but a degraded streak beats an error on the dashboard.
func (e *Engine) Streak(userID uint) int {
	today := dayStart(e.now())

	var days []time.Time
	err := e.db.Model(&models.DailyActivity{}).
		Where("user_id = ?", userID).
		Order("streak_date DESC").
		Pluck("streak_date", &days).Error
	if err != nil {
		logWarn("read activity days", err)
		days = days[:0]
		if err := e.db.Model(&models.ReadingSession{}).
			Where("user_id = ?", userID).
			Order("session_date DESC").
			Pluck("session_date", &days).Error; err != nil {
			logWarn("read session days", err)
			return 0
		}
	}

	return consecutiveDays(days, today)
}

// consecutiveDays runs the backward walk over day timestamps sorted newest
// first. Duplicate rows for an already-counted day are skipped so the
// session-date fallback (which may hold several sessions per day) walks the
// same path as the deduplicated activity table.
func consecutiveDays(days []time.Time, today time.Time) int {
	todayNum := dayNumber(today)
	streak := 0
	for _, d := range days {
		diff := todayNum - dayNumber(d)
		switch {
		case diff == streak:
			streak++
		case diff < streak:
			// another row for a day already counted
		default:
			return streak
		}
	}
	return streak
}
