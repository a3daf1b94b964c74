package models

import "time"

// Book reading status values. Status is free-form at the storage layer; the
// controller validates transitions against this set.
const (
	BookStatusToRead    = "to-read"
	BookStatusReading   = "reading"
	BookStatusCompleted = "completed"
	BookStatusPaused    = "paused"
)

// Book represents a book in a user's library.
type Book struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"index;not null" json:"user_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Author      string     `gorm:"size:255" json:"author"`
	Status      string     `gorm:"size:16;default:'to-read'" json:"status"`
	TotalPages  int        `json:"total_pages"`
	PagesRead   int        `gorm:"default:0" json:"pages_read"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	User        User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Notes       []Note     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// ValidBookStatus reports whether s is one of the recognized reading states.
func ValidBookStatus(s string) bool {
	switch s {
	case BookStatusToRead, BookStatusReading, BookStatusCompleted, BookStatusPaused:
		return true
	}
	return false
}
