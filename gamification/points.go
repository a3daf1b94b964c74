package gamification

import (
	"gorm.io/gorm"

	"github.com/shelfquest/api/models"
	"github.com/shelfquest/api/utils"
)

// Point weights for each activity type. A reading session earns the flat
// bonus plus one point per minute.
const (
	PointsPerBook      = 25
	PointsPerNote      = 15
	PointsPerHighlight = 10
	PointsPerSession   = 10
	PointsPerMinute    = 1
)

// PointsPerLevel sets how many points advance the level counter by one.
const PointsPerLevel = 100

// Stats is the aggregate view of one user's reading activity, recomputed
// from source rows on every call. Field names follow the JSON contract the
// dashboard client consumes.
type Stats struct {
	TotalPoints       int `json:"totalPoints"`
	Level             int `json:"level"`
	BooksRead         int `json:"booksRead"`
	BooksCompleted    int `json:"booksCompleted"`
	PagesRead         int `json:"pagesRead"`
	TotalReadingTime  int `json:"totalReadingTime"`
	ReadingStreak     int `json:"readingStreak"`
	NotesCreated      int `json:"notesCreated"`
	HighlightsCreated int `json:"highlightsCreated"`
}

// ComputeStats aggregates a user's books, notes, and sessions into Stats.
// Each failed read degrades to zero for that counter instead of failing the
// whole request; the dashboard stays available, the error goes to the log.
func (e *Engine) ComputeStats(userID uint) Stats {
	var s Stats

	s.BooksRead = int(e.countRows(e.db.Model(&models.Book{}).Where("user_id = ?", userID), "count books"))
	s.BooksCompleted = int(e.countRows(e.db.Model(&models.Book{}).Where("user_id = ? AND status = ?", userID, models.BookStatusCompleted), "count completed books"))
	s.NotesCreated = int(e.countRows(e.db.Model(&models.Note{}).Where("user_id = ? AND type = ?", userID, models.NoteTypeNote), "count notes"))
	s.HighlightsCreated = int(e.countRows(e.db.Model(&models.Note{}).Where("user_id = ? AND type = ?", userID, models.NoteTypeHighlight), "count highlights"))

	var pages int64
	if err := e.db.Model(&models.Book{}).Where("user_id = ?", userID).
		Select("COALESCE(SUM(pages_read),0)").Scan(&pages).Error; err != nil {
		logWarn("sum pages read", err)
		pages = 0
	}
	s.PagesRead = int(pages)

	var sessions struct {
		Sessions int64
		Minutes  int64
	}
	if err := e.db.Model(&models.ReadingSession{}).Where("user_id = ?", userID).
		Select("COUNT(*) AS sessions, COALESCE(SUM(duration),0) AS minutes").
		Scan(&sessions).Error; err != nil {
		logWarn("aggregate sessions", err)
		sessions.Sessions, sessions.Minutes = 0, 0
	}
	s.TotalReadingTime = int(sessions.Minutes)

	s.TotalPoints = PointsPerBook*s.BooksRead +
		PointsPerNote*s.NotesCreated +
		PointsPerHighlight*s.HighlightsCreated +
		PointsPerSession*int(sessions.Sessions) +
		PointsPerMinute*int(sessions.Minutes)
	s.Level = s.TotalPoints/PointsPerLevel + 1
	s.ReadingStreak = e.Streak(userID)

	return s
}

// countRows runs a COUNT over the prepared query, degrading to zero on error.
func (e *Engine) countRows(q *gorm.DB, what string) int64 {
	var n int64
	if err := q.Count(&n).Error; err != nil {
		logWarn(what, err)
		return 0
	}
	return n
}

func logWarn(what string, err error) {
	if utils.Sugar != nil {
		utils.Sugar.Warnf("gamification: %s failed: %v", what, err)
	}
}
