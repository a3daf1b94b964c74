package models

import "time"

// Note kinds. Highlights carry the quoted passage; notes carry the reader's
// own words. Both hang off a book and both earn points.
const (
	NoteTypeNote      = "note"
	NoteTypeHighlight = "highlight"
)

// Note represents an annotation a user made while reading.
type Note struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	BookID    uint      `gorm:"index;not null" json:"book_id"`
	Type      string    `gorm:"size:16;not null;default:'note'" json:"type"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Page      int       `json:"page"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Book      Book      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// ValidNoteType reports whether s names a known annotation kind.
func ValidNoteType(s string) bool {
	return s == NoteTypeNote || s == NoteTypeHighlight
}
