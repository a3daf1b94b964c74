package gamification

import (
	"fmt"
	"sort"
	"time"

	"github.com/shelfquest/api/models"
)

// HistoryEntry is one point-earning event reconstructed from the source
// tables.
type HistoryEntry struct {
	Action    string    `json:"action"`
	Points    int       `json:"points"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// History rebuilds the user's recent point-earning events by merging books,
// notes, sessions, and check-ins, newest first. There is no event log table;
// the view is derived on demand. A source that fails to read contributes
// nothing rather than failing the request.
func (e *Engine) History(userID uint, limit int) []HistoryEntry {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries := []HistoryEntry{}

	var books []models.Book
	if err := e.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&books).Error; err != nil {
		logWarn("history: load books", err)
	}
	for _, b := range books {
		entries = append(entries, HistoryEntry{
			Action:    ActionBookAdded,
			Points:    PointsPerBook,
			Timestamp: b.CreatedAt,
			Detail:    b.Title,
		})
	}

	var notes []models.Note
	if err := e.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&notes).Error; err != nil {
		logWarn("history: load notes", err)
	}
	for _, n := range notes {
		entry := HistoryEntry{Action: ActionNoteCreated, Points: PointsPerNote, Timestamp: n.CreatedAt}
		if n.Type == models.NoteTypeHighlight {
			entry.Action = ActionHighlightCreated
			entry.Points = PointsPerHighlight
		}
		entries = append(entries, entry)
	}

	var sessions []models.ReadingSession
	if err := e.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&sessions).Error; err != nil {
		logWarn("history: load sessions", err)
	}
	for _, s := range sessions {
		entries = append(entries, HistoryEntry{
			Action:    ActionSessionLogged,
			Points:    PointsPerSession + PointsPerMinute*s.Duration,
			Timestamp: s.CreatedAt,
			Detail:    fmt.Sprintf("%d min", s.Duration),
		})
	}

	var checkins []models.DailyCheckin
	if err := e.db.Where("user_id = ?", userID).Order("checkin_date DESC").Limit(limit).Find(&checkins).Error; err != nil {
		logWarn("history: load check-ins", err)
	}
	for _, c := range checkins {
		entries = append(entries, HistoryEntry{
			Action:    ActionDailyCheckin,
			Points:    c.PointsAwarded,
			Timestamp: c.CreatedAt,
			Detail:    fmt.Sprintf("day %d", c.Streak),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// BreakdownItem is one row of the points breakdown.
type BreakdownItem struct {
	Count  int `json:"count"`
	Points int `json:"points"`
}

// Breakdown splits the running total by activity type. Total matches the
// stats aggregator exactly; check-in rewards are listed but live only on
// their own rows, outside the derived total.
type Breakdown struct {
	Books       BreakdownItem `json:"books"`
	Notes       BreakdownItem `json:"notes"`
	Highlights  BreakdownItem `json:"highlights"`
	Sessions    BreakdownItem `json:"sessions"`
	ReadingTime BreakdownItem `json:"readingTime"`
	Checkins    BreakdownItem `json:"checkins"`
	Total       int           `json:"total"`
}

// PointsBreakdown derives the per-type contribution view over the same
// source tables the aggregator reads.
func (e *Engine) PointsBreakdown(userID uint) Breakdown {
	var b Breakdown

	books := int(e.countRows(e.db.Model(&models.Book{}).Where("user_id = ?", userID), "breakdown: count books"))
	b.Books = BreakdownItem{Count: books, Points: books * PointsPerBook}

	notes := int(e.countRows(e.db.Model(&models.Note{}).Where("user_id = ? AND type = ?", userID, models.NoteTypeNote), "breakdown: count notes"))
	b.Notes = BreakdownItem{Count: notes, Points: notes * PointsPerNote}

	highlights := int(e.countRows(e.db.Model(&models.Note{}).Where("user_id = ? AND type = ?", userID, models.NoteTypeHighlight), "breakdown: count highlights"))
	b.Highlights = BreakdownItem{Count: highlights, Points: highlights * PointsPerHighlight}

	var agg struct {
		Sessions int64
		Minutes  int64
	}
	if err := e.db.Model(&models.ReadingSession{}).Where("user_id = ?", userID).
		Select("COUNT(*) AS sessions, COALESCE(SUM(duration),0) AS minutes").
		Scan(&agg).Error; err != nil {
		logWarn("breakdown: aggregate sessions", err)
		agg.Sessions, agg.Minutes = 0, 0
	}
	b.Sessions = BreakdownItem{Count: int(agg.Sessions), Points: int(agg.Sessions) * PointsPerSession}
	b.ReadingTime = BreakdownItem{Count: int(agg.Minutes), Points: int(agg.Minutes) * PointsPerMinute}

	var checkins struct {
		Checkins int64
		Awarded  int64
	}
	if err := e.db.Model(&models.DailyCheckin{}).Where("user_id = ?", userID).
		Select("COUNT(*) AS checkins, COALESCE(SUM(points_awarded),0) AS awarded").
		Scan(&checkins).Error; err != nil {
		logWarn("breakdown: aggregate check-ins", err)
		checkins.Checkins, checkins.Awarded = 0, 0
	}
	b.Checkins = BreakdownItem{Count: int(checkins.Checkins), Points: int(checkins.Awarded)}

	b.Total = b.Books.Points + b.Notes.Points + b.Highlights.Points + b.Sessions.Points + b.ReadingTime.Points
	return b
}
