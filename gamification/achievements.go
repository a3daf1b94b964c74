package gamification

import (
	"time"

	"gorm.io/gorm/clause"

	"github.com/shelfquest/api/models"
)

// AchievementStatus is a catalog entry annotated with the user's unlock state.
type AchievementStatus struct {
	Achievement
	IsUnlocked bool       `json:"isUnlocked"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty"`
}

// Evaluate compares the stats snapshot against every locked catalog entry
// and persists any unlock the user now qualifies for, returning the newly
// unlocked achievements so the client can celebrate them.
//
// Unlocks are write-once per (user, achievement): the insert uses an
// on-conflict-do-nothing clause against the unique index, and an insert that
// affects no rows means a concurrent request got there first, so the
// achievement is not reported again. A failed insert is logged and skipped;
// the user re-qualifies on the next evaluation.
func (e *Engine) Evaluate(userID uint, stats Stats) []Achievement {
	var rows []models.UserAchievement
	if err := e.db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		logWarn("load unlocked achievements", err)
		return nil
	}
	unlocked := make(map[string]bool, len(rows))
	for _, r := range rows {
		unlocked[r.AchievementID] = true
	}

	newly := []Achievement{}
	for _, a := range Catalog {
		if unlocked[a.ID] {
			continue
		}
		if counterFor(stats, a.Trigger) < a.Threshold {
			continue
		}

		res := e.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
			DoNothing: true,
		}).Create(&models.UserAchievement{
			UserID:        userID,
			AchievementID: a.ID,
			UnlockedAt:    e.now(),
		})
		if res.Error != nil {
			logWarn("unlock achievement "+a.ID, res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			// lost the race to a concurrent request
			continue
		}
		newly = append(newly, a)
	}
	return newly
}

// AchievementStatuses returns the full catalog annotated with the user's
// unlock timestamps. A failed read yields an all-locked catalog rather than
// an error.
func (e *Engine) AchievementStatuses(userID uint) []AchievementStatus {
	unlockedAt := map[string]time.Time{}
	var rows []models.UserAchievement
	if err := e.db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		logWarn("load unlocked achievements", err)
	} else {
		for _, r := range rows {
			unlockedAt[r.AchievementID] = r.UnlockedAt
		}
	}

	out := make([]AchievementStatus, 0, len(Catalog))
	for _, a := range Catalog {
		st := AchievementStatus{Achievement: a}
		if ts, ok := unlockedAt[a.ID]; ok {
			st.IsUnlocked = true
			t := ts
			st.UnlockedAt = &t
		}
		out = append(out, st)
	}
	return out
}
