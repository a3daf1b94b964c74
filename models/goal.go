package models

import "time"

// Goal types and states.
const (
	GoalTypeBooks   = "books"
	GoalTypePages   = "pages"
	GoalTypeMinutes = "minutes"
	GoalTypeStreak  = "streak"

	GoalStatusActive    = "active"
	GoalStatusCompleted = "completed"
	GoalStatusExpired   = "expired"
)

// Goal is a user-defined reading target. Progress is not stored; it is
// derived from activity rows when goals are listed, the same way point
// totals are derived.
type Goal struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"index;not null" json:"user_id"`
	Type        string     `gorm:"size:16;not null" json:"type"`
	Title       string     `gorm:"size:255" json:"title"`
	Target      int        `gorm:"not null" json:"target"`
	Deadline    *time.Time `json:"deadline"`
	PointReward int        `gorm:"default:0" json:"point_reward"`
	Status      string     `gorm:"size:16;default:'active'" json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	User        User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// ValidGoalType reports whether s names a supported goal metric.
func ValidGoalType(s string) bool {
	switch s {
	case GoalTypeBooks, GoalTypePages, GoalTypeMinutes, GoalTypeStreak:
		return true
	}
	return false
}
