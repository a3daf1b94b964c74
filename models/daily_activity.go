package models

import "time"

// DailyActivity is a per-user per-day activity counter. Any qualifying action
// (adding a book, writing a note or highlight, logging a session, checking
// in) bumps the counter for that calendar day via an upsert, so the streak
// calculator only ever needs an existence probe per day.
type DailyActivity struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_user_streak_date" json:"user_id"`
	StreakDate time.Time `gorm:"not null;uniqueIndex:idx_user_streak_date" json:"streak_date"`
	Count      int       `gorm:"default:1" json:"count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
