package models

import "time"

// ReadingSession records one sitting with a book. Duration is minutes.
// SessionDate is truncated to the user's local midnight when the row is
// written so streak queries can group by calendar day.
type ReadingSession struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	BookID      uint      `gorm:"index" json:"book_id"`
	Duration    int       `gorm:"not null" json:"duration"`
	PagesRead   int       `json:"pages_read"`
	SessionDate time.Time `gorm:"index;not null" json:"session_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	User        User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}
