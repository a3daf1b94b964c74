package models

import "time"

// DailyCheckin records one successful daily check-in. CheckinDate is the
// user's local calendar day at midnight; the composite unique index makes a
// second check-in on the same day a constraint violation rather than a
// silent duplicate.
//
// Streak and PointsAwarded are snapshots of what the check-in computed at
// the time. They exist for history display; the live streak shown on stats
// is always recomputed from activity rows.
type DailyCheckin struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_user_checkin_date" json:"user_id"`
	CheckinDate   time.Time `gorm:"not null;uniqueIndex:idx_user_checkin_date" json:"checkin_date"`
	Streak        int       `gorm:"default:1" json:"streak"`
	PointsAwarded int       `gorm:"default:0" json:"points_awarded"`
	CreatedAt     time.Time `json:"created_at"`
	User          User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}
