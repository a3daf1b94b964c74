package models

import "time"

// UserAchievement marks one achievement as unlocked for one user. The
// composite unique index is the concurrency guard: two requests racing to
// unlock the same achievement both try the insert, the database keeps one
// row, and only the request whose insert actually landed reports the unlock.
type UserAchievement struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_user_achievement" json:"user_id"`
	AchievementID string    `gorm:"size:64;not null;uniqueIndex:idx_user_achievement" json:"achievement_id"`
	UnlockedAt    time.Time `gorm:"not null" json:"unlocked_at"`
	User          User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}
