package gamification

import (
	"time"

	"github.com/shelfquest/api/models"
)

// GoalProgress derives how far along a goal is from the current stats
// snapshot. Progress is never stored on the goal row; it is recomputed the
// same way point totals are.
func GoalProgress(stats Stats, goalType string) int {
	switch goalType {
	case models.GoalTypeBooks:
		return stats.BooksCompleted
	case models.GoalTypePages:
		return stats.PagesRead
	case models.GoalTypeMinutes:
		return stats.TotalReadingTime
	case models.GoalTypeStreak:
		return stats.ReadingStreak
	}
	return 0
}

// DefaultGoals builds the suggested goals shown to users who have not saved
// any of their own. Generated fresh per request, never persisted until the
// user adopts one.
func DefaultGoals(now time.Time) []models.Goal {
	endOfYear := time.Date(now.Year(), 12, 31, 23, 59, 59, 0, now.Location())
	// upcoming Sunday, counting today when it already is Sunday
	offset := (7 - int(now.Weekday())) % 7
	endOfWeek := time.Date(now.Year(), now.Month(), now.Day()+offset, 23, 59, 59, 0, now.Location())

	return []models.Goal{
		{
			Type:        models.GoalTypeBooks,
			Title:       "Finish 12 books this year",
			Target:      12,
			Deadline:    &endOfYear,
			PointReward: 100,
			Status:      models.GoalStatusActive,
		},
		{
			Type:        models.GoalTypeMinutes,
			Title:       "Read 150 minutes this week",
			Target:      150,
			Deadline:    &endOfWeek,
			PointReward: 50,
			Status:      models.GoalStatusActive,
		},
		{
			Type:        models.GoalTypeStreak,
			Title:       "Keep a 7-day reading streak",
			Target:      7,
			PointReward: 40,
			Status:      models.GoalStatusActive,
		},
	}
}
