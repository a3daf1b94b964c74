package controllers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shelfquest/api/gamification"
	"github.com/shelfquest/api/models"
)

type statsPayload struct {
	gamification.Stats
	NewlyUnlockedAchievements []gamification.Achievement `json:"newlyUnlockedAchievements"`
}

type goalPayload struct {
	models.Goal
	Progress int `json:"progress"`
}

func newlyIDs(entries []gamification.Achievement) map[string]bool {
	out := map[string]bool{}
	for _, a := range entries {
		out[a.ID] = true
	}
	return out
}

func TestStatsAggregatesAndUnlocks(t *testing.T) {
	r, _ := newTestAPI(t)
	token := registerUser(t, r, "gamer")

	doneID := createBook(t, r, token, "Finished One", "completed")
	createBook(t, r, token, "In Progress", "reading")
	for i := 0; i < 3; i++ {
		mustSucceed(t, do(t, r, http.MethodPost, "/api/notes", token, gin.H{
			"book_id": doneID,
			"content": fmt.Sprintf("thought %d", i),
		}), nil)
	}
	mustSucceed(t, do(t, r, http.MethodPost, "/api/notes", token, gin.H{
		"book_id": doneID,
		"type":    "highlight",
		"content": "the key passage",
	}), nil)
	mustSucceed(t, do(t, r, http.MethodPost, "/api/sessions", token, gin.H{
		"book_id":  doneID,
		"duration": 30,
	}), nil)

	var stats statsPayload
	mustSucceed(t, do(t, r, http.MethodGet, "/api/gamification/stats", token, nil), &stats)

	// 2 books, 3 notes, 1 highlight, one 30-minute session:
	// 50 + 45 + 10 + 10 + 30 = 145
	if stats.TotalPoints != 145 {
		t.Fatalf("totalPoints = %d, want 145", stats.TotalPoints)
	}
	if stats.Level != 2 {
		t.Fatalf("level = %d, want 2", stats.Level)
	}
	if stats.BooksRead != 2 || stats.BooksCompleted != 1 {
		t.Fatalf("books = %d/%d, want 2/1", stats.BooksRead, stats.BooksCompleted)
	}
	if stats.NotesCreated != 3 || stats.HighlightsCreated != 1 || stats.TotalReadingTime != 30 {
		t.Fatalf("counters = %+v", stats.Stats)
	}
	if stats.ReadingStreak != 1 {
		t.Fatalf("readingStreak = %d, want 1 from today's activity", stats.ReadingStreak)
	}

	got := newlyIDs(stats.NewlyUnlockedAchievements)
	for _, id := range []string{"first_book", "first_finish", "first_note", "first_highlight"} {
		if !got[id] {
			t.Fatalf("expected %s among new unlocks, got %v", id, got)
		}
	}
	if got["bookworm"] || got["first_hour"] {
		t.Fatalf("unexpected unlocks: %v", got)
	}

	// unlocks are reported exactly once
	mustSucceed(t, do(t, r, http.MethodGet, "/api/gamification/stats", token, nil), &stats)
	if len(stats.NewlyUnlockedAchievements) != 0 {
		t.Fatalf("second read reported unlocks again: %v", stats.NewlyUnlockedAchievements)
	}

	var annotated struct {
		Achievements []gamification.AchievementStatus `json:"achievements"`
	}
	mustSucceed(t, do(t, r, http.MethodGet, "/api/gamification/achievements", token, nil), &annotated)
	if len(annotated.Achievements) != len(gamification.Catalog) {
		t.Fatalf("achievements = %d entries, want the full catalog of %d", len(annotated.Achievements), len(gamification.Catalog))
	}
	unlockedCount := 0
	for _, st := range annotated.Achievements {
		if st.IsUnlocked {
			unlockedCount++
			if st.UnlockedAt == nil {
				t.Fatalf("%s unlocked without a timestamp", st.ID)
			}
		}
	}
	if unlockedCount != 4 {
		t.Fatalf("unlocked = %d, want 4", unlockedCount)
	}
}

func TestCheckinActionAndStatus(t *testing.T) {
	r, _ := newTestAPI(t)
	token := registerUser(t, r, "regular")

	var status struct {
		CheckedInToday bool       `json:"checkedInToday"`
		Streak         int        `json:"streak"`
		LastCheckin    *time.Time `json:"lastCheckin"`
	}
	mustSucceed(t, do(t, r, http.MethodGet, "/api/gamification/checkin", token, nil), &status)
	if status.CheckedInToday || status.Streak != 0 || status.LastCheckin != nil {
		t.Fatalf("fresh status = %+v", status)
	}

	var acted struct {
		Action  string                     `json:"action"`
		Checkin *gamification.CheckinResult `json:"checkin"`
	}
	mustSucceed(t, do(t, r, http.MethodPost, "/api/gamification/actions", token, gin.H{
		"action": "daily_checkin",
	}), &acted)
	if acted.Action != gamification.ActionDailyCheckin || acted.Checkin == nil {
		t.Fatalf("check-in response = %+v", acted)
	}
	if acted.Checkin.Streak != 1 || acted.Checkin.PointsAwarded != 10 {
		t.Fatalf("checkin = %+v", acted.Checkin)
	}
	if !sameCalendarDay(acted.Checkin.CheckinDate, time.Now()) {
		t.Fatalf("checkinDate = %v, want today", acted.Checkin.CheckinDate)
	}

	mustFail(t, do(t, r, http.MethodPost, "/api/gamification/actions", token, gin.H{
		"action": "daily_checkin",
	}), http.StatusBadRequest, 40061)

	mustSucceed(t, do(t, r, http.MethodGet, "/api/gamification/checkin", token, nil), &status)
	if !status.CheckedInToday || status.Streak != 1 || status.LastCheckin == nil {
		t.Fatalf("post check-in status = %+v", status)
	}
}

func TestActionAcknowledgements(t *testing.T) {
	r, _ := newTestAPI(t)
	token := registerUser(t, r, "clicker")

	var acked struct {
		Action string `json:"action"`
		Points int    `json:"points"`
	}
	mustSucceed(t, do(t, r, http.MethodPost, "/api/gamification/actions", token, gin.H{
		"action": "book_added",
	}), &acked)
	if acked.Action != "book_added" || acked.Points != gamification.PointsPerBook {
		t.Fatalf("ack = %+v", acked)
	}

	mustFail(t, do(t, r, http.MethodPost, "/api/gamification/actions", token, gin.H{
		"action": "planking",
	}), http.StatusBadRequest, 40062)
	mustFail(t, do(t, r, http.MethodPost, "/api/gamification/actions", token, gin.H{}), http.StatusBadRequest, 40060)
}

func TestGoalsLifecycle(t *testing.T) {
	r, _ := newTestAPI(t)
	token := registerUser(t, r, "planner")

	var list struct {
		Goals []goalPayload `json:"goals"`
	}
	mustSucceed(t, do(t, r, http.MethodGet, "/api/gamification/goals", token, nil), &list)
	if len(list.Goals) != 3 {
		t.Fatalf("suggestions = %d, want 3", len(list.Goals))
	}
	for _, g := range list.Goals {
		if g.ID != 0 {
			t.Fatalf("suggestion %q has id %d, suggestions are not persisted", g.Title, g.ID)
		}
	}

	var created struct {
		Goal goalPayload `json:"goal"`
	}
	mustSucceed(t, do(t, r, http.MethodPost, "/api/gamification/goals", token, gin.H{
		"type":   "books",
		"title":  "Finish 20 <i>serious</i> books",
		"target": 20,
	}), &created)
	goal := created.Goal
	if goal.ID == 0 || goal.Status != models.GoalStatusActive {
		t.Fatalf("created goal = %+v", goal)
	}
	if goal.Title != "Finish 20 serious books" {
		t.Fatalf("title not sanitized: %q", goal.Title)
	}
	if goal.Progress != 0 {
		t.Fatalf("progress = %d, want 0", goal.Progress)
	}

	// saved goals replace the suggestions
	mustSucceed(t, do(t, r, http.MethodGet, "/api/gamification/goals", token, nil), &list)
	if len(list.Goals) != 1 || list.Goals[0].ID != goal.ID {
		t.Fatalf("list after create = %+v", list.Goals)
	}

	// progress follows completed books
	createBook(t, r, token, "Counted", "completed")
	mustSucceed(t, do(t, r, http.MethodGet, "/api/gamification/goals", token, nil), &list)
	if list.Goals[0].Progress != 1 {
		t.Fatalf("progress = %d, want 1 after completing a book", list.Goals[0].Progress)
	}

	var updated struct {
		Goal goalPayload `json:"goal"`
	}
	mustSucceed(t, do(t, r, http.MethodPatch, fmt.Sprintf("/api/gamification/goals/%d", goal.ID), token, gin.H{
		"target": 25,
		"status": "completed",
	}), &updated)
	if updated.Goal.Target != 25 || updated.Goal.Status != models.GoalStatusCompleted {
		t.Fatalf("updated goal = %+v", updated.Goal)
	}

	mustSucceed(t, do(t, r, http.MethodDelete, fmt.Sprintf("/api/gamification/goals/%d", goal.ID), token, nil), nil)
	mustFail(t, do(t, r, http.MethodDelete, fmt.Sprintf("/api/gamification/goals/%d", goal.ID), token, nil), http.StatusNotFound, 40405)

	mustSucceed(t, do(t, r, http.MethodGet, "/api/gamification/goals", token, nil), &list)
	if len(list.Goals) != 3 {
		t.Fatalf("suggestions did not come back: %d goals", len(list.Goals))
	}
}

func TestGoalValidation(t *testing.T) {
	r, _ := newTestAPI(t)
	token := registerUser(t, r, "careless")

	cases := []struct {
		name   string
		body   gin.H
		status int
		code   int
	}{
		{"missing type", gin.H{"target": 5}, http.StatusBadRequest, 40070},
		{"missing target", gin.H{"type": "books"}, http.StatusBadRequest, 40070},
		{"bad type", gin.H{"type": "calories", "target": 5}, http.StatusBadRequest, 40071},
		{"negative target", gin.H{"type": "books", "target": -5}, http.StatusBadRequest, 40072},
		{"negative reward", gin.H{"type": "books", "target": 5, "point_reward": -1}, http.StatusBadRequest, 40073},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mustFail(t, do(t, r, http.MethodPost, "/api/gamification/goals", token, tc.body), tc.status, tc.code)
		})
	}

	goalID := createGoalForStatusTest(t, r, token)
	mustFail(t, do(t, r, http.MethodPatch, fmt.Sprintf("/api/gamification/goals/%d", goalID), token, gin.H{
		"status": "done",
	}), http.StatusBadRequest, 40074)
}

func createGoalForStatusTest(t *testing.T, r *gin.Engine, token string) uint {
	t.Helper()
	var created struct {
		Goal goalPayload `json:"goal"`
	}
	mustSucceed(t, do(t, r, http.MethodPost, "/api/gamification/goals", token, gin.H{
		"type":   "minutes",
		"target": 90,
	}), &created)
	return created.Goal.ID
}

func TestHistoryAndBreakdown(t *testing.T) {
	r, _ := newTestAPI(t)
	token := registerUser(t, r, "tracker")

	createBook(t, r, token, "Logged", "reading")
	mustSucceed(t, do(t, r, http.MethodPost, "/api/sessions", token, gin.H{"duration": 20}), nil)
	mustSucceed(t, do(t, r, http.MethodPost, "/api/gamification/actions", token, gin.H{"action": "daily_checkin"}), nil)

	var history struct {
		Items []gamification.HistoryEntry `json:"items"`
	}
	mustSucceed(t, do(t, r, http.MethodGet, "/api/gamification/actions/history", token, nil), &history)
	if len(history.Items) != 3 {
		t.Fatalf("history = %d entries, want 3", len(history.Items))
	}
	seen := map[string]gamification.HistoryEntry{}
	for _, entry := range history.Items {
		seen[entry.Action] = entry
	}
	if e, ok := seen["book_added"]; !ok || e.Points != 25 || e.Detail != "Logged" {
		t.Fatalf("book entry = %+v", e)
	}
	if e, ok := seen["session_logged"]; !ok || e.Points != 30 || e.Detail != "20 min" {
		t.Fatalf("session entry = %+v", e)
	}
	if e, ok := seen["daily_checkin"]; !ok || e.Points != 10 || e.Detail != "day 1" {
		t.Fatalf("checkin entry = %+v", e)
	}

	mustSucceed(t, do(t, r, http.MethodGet, "/api/gamification/actions/history?limit=2", token, nil), &history)
	if len(history.Items) != 2 {
		t.Fatalf("limited history = %d entries, want 2", len(history.Items))
	}

	var breakdown gamification.Breakdown
	mustSucceed(t, do(t, r, http.MethodGet, "/api/gamification/actions/breakdown", token, nil), &breakdown)
	if breakdown.Books.Count != 1 || breakdown.Books.Points != 25 {
		t.Fatalf("books breakdown = %+v", breakdown.Books)
	}
	if breakdown.Sessions.Points != 10 || breakdown.ReadingTime.Points != 20 {
		t.Fatalf("session breakdown = %+v / %+v", breakdown.Sessions, breakdown.ReadingTime)
	}
	if breakdown.Checkins.Count != 1 || breakdown.Checkins.Points != 10 {
		t.Fatalf("checkins breakdown = %+v", breakdown.Checkins)
	}
	// check-in rewards stay outside the derived total
	if breakdown.Total != 55 {
		t.Fatalf("total = %d, want 55", breakdown.Total)
	}

	var stats statsPayload
	mustSucceed(t, do(t, r, http.MethodGet, "/api/gamification/stats", token, nil), &stats)
	if breakdown.Total != stats.TotalPoints {
		t.Fatalf("breakdown total %d != stats total %d", breakdown.Total, stats.TotalPoints)
	}
}
