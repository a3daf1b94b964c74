package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shelfquest/api/gamification"
	"github.com/shelfquest/api/models"
	"github.com/shelfquest/api/utils"
)

// GamificationController exposes the stats, achievements, goals, and actions
// endpoints over the engine. None of its reads are cached: every request
// recomputes from the source rows.
type GamificationController struct {
	db     *gorm.DB
	engine *gamification.Engine
}

// NewGamificationController creates a new GamificationController instance.
func NewGamificationController(db *gorm.DB, engine *gamification.Engine) *GamificationController {
	return &GamificationController{db: db, engine: engine}
}

// statsResponse flattens the stats snapshot with the achievements this
// request unlocked.
type statsResponse struct {
	gamification.Stats
	NewlyUnlockedAchievements []gamification.Achievement `json:"newlyUnlockedAchievements"`
}

// Stats recomputes the user's aggregate stats and runs the achievement
// evaluator, so reaching a threshold is noticed on the very next dashboard
// load.
func (g *GamificationController) Stats(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	stats := g.engine.ComputeStats(userID)
	newly := g.engine.Evaluate(userID, stats)

	utils.Success(ctx, statsResponse{Stats: stats, NewlyUnlockedAchievements: newly})
}

// Achievements returns the full catalog annotated with the user's unlocks.
func (g *GamificationController) Achievements(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	utils.Success(ctx, gin.H{"achievements": g.engine.AchievementStatuses(userID)})
}

// goalView is a stored goal annotated with live progress.
type goalView struct {
	models.Goal
	Progress int `json:"progress"`
}

// ListGoals returns the user's goals with derived progress. Users with no
// saved goals get generated suggestions (id 0, not persisted).
func (g *GamificationController) ListGoals(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var goals []models.Goal
	if err := g.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&goals).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to list goals")
		return
	}
	if len(goals) == 0 {
		goals = gamification.DefaultGoals(time.Now())
	}

	stats := g.engine.ComputeStats(userID)
	views := make([]goalView, 0, len(goals))
	for _, goal := range goals {
		views = append(views, goalView{
			Goal:     goal,
			Progress: gamification.GoalProgress(stats, goal.Type),
		})
	}
	utils.Success(ctx, gin.H{"goals": views})
}

// CreateGoal saves a reading goal for the user.
func (g *GamificationController) CreateGoal(ctx *gin.Context) {
	var req struct {
		Type        string     `json:"type" binding:"required"`
		Title       string     `json:"title"`
		Target      int        `json:"target" binding:"required"`
		Deadline    *time.Time `json:"deadline"`
		PointReward int        `json:"point_reward"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40070, "invalid request payload")
		return
	}
	if !models.ValidGoalType(req.Type) {
		utils.Error(ctx, http.StatusBadRequest, 40071, "type must be books, pages, minutes, or streak")
		return
	}
	if req.Target <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40072, "target must be positive")
		return
	}
	if req.PointReward < 0 {
		utils.Error(ctx, http.StatusBadRequest, 40073, "point_reward cannot be negative")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	goal := models.Goal{
		UserID:      userID,
		Type:        req.Type,
		Title:       utils.SanitizePlain(strings.TrimSpace(req.Title)),
		Target:      req.Target,
		Deadline:    req.Deadline,
		PointReward: req.PointReward,
		Status:      models.GoalStatusActive,
	}
	if err := g.db.Create(&goal).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to create goal")
		return
	}

	stats := g.engine.ComputeStats(userID)
	utils.Success(ctx, gin.H{"goal": goalView{Goal: goal, Progress: gamification.GoalProgress(stats, goal.Type)}})
}

// UpdateGoal applies partial updates to a goal. Status is advisory: the
// client marks goals completed or expired, the server only validates the
// value.
func (g *GamificationController) UpdateGoal(ctx *gin.Context) {
	var req struct {
		Title       string     `json:"title"`
		Target      *int       `json:"target"`
		Deadline    *time.Time `json:"deadline"`
		Status      string     `json:"status"`
		PointReward *int       `json:"point_reward"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40070, "invalid request payload")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var goal models.Goal
	if err := g.db.Where("user_id = ?", userID).First(&goal, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40405, "goal not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to load goal")
		return
	}

	if req.Title != "" {
		goal.Title = utils.SanitizePlain(strings.TrimSpace(req.Title))
	}
	if req.Target != nil {
		if *req.Target <= 0 {
			utils.Error(ctx, http.StatusBadRequest, 40072, "target must be positive")
			return
		}
		goal.Target = *req.Target
	}
	if req.Deadline != nil {
		goal.Deadline = req.Deadline
	}
	if req.Status != "" {
		switch req.Status {
		case models.GoalStatusActive, models.GoalStatusCompleted, models.GoalStatusExpired:
			goal.Status = req.Status
		default:
			utils.Error(ctx, http.StatusBadRequest, 40074, "status must be active, completed, or expired")
			return
		}
	}
	if req.PointReward != nil {
		if *req.PointReward < 0 {
			utils.Error(ctx, http.StatusBadRequest, 40073, "point_reward cannot be negative")
			return
		}
		goal.PointReward = *req.PointReward
	}

	if err := g.db.Save(&goal).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to update goal")
		return
	}

	stats := g.engine.ComputeStats(userID)
	utils.Success(ctx, gin.H{"goal": goalView{Goal: goal, Progress: gamification.GoalProgress(stats, goal.Type)}})
}

// DeleteGoal removes a stored goal.
func (g *GamificationController) DeleteGoal(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var goal models.Goal
	if err := g.db.Where("user_id = ?", userID).First(&goal, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40405, "goal not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to load goal")
		return
	}

	if err := g.db.Delete(&goal).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50064, "failed to delete goal")
		return
	}
	utils.Success(ctx, gin.H{"message": "goal deleted"})
}

// Action dispatches a gamification action. daily_checkin is the only one
// that persists anything; the rest are acknowledged with their point value
// so the client can update optimistically while totals keep deriving from
// the actual rows.
func (g *GamificationController) Action(ctx *gin.Context) {
	var req struct {
		Action string `json:"action" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid request payload")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	action := strings.TrimSpace(req.Action)
	if action == gamification.ActionDailyCheckin {
		result, err := g.engine.Checkin(userID)
		if err != nil {
			if errors.Is(err, gamification.ErrAlreadyCheckedIn) {
				utils.Error(ctx, http.StatusBadRequest, 40061, "already checked in today")
				return
			}
			utils.Error(ctx, http.StatusInternalServerError, 50065, "check-in failed")
			return
		}
		utils.Success(ctx, gin.H{"action": action, "checkin": result})
		return
	}

	points, known := gamification.ActionPoints(action)
	if !known {
		utils.Error(ctx, http.StatusBadRequest, 40062, "unknown action")
		return
	}
	utils.Success(ctx, gin.H{"action": action, "points": points})
}

// ActionHistory lists the user's recent point-earning events, newest first.
func (g *GamificationController) ActionHistory(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	utils.Success(ctx, gin.H{"items": g.engine.History(userID, limit)})
}

// ActionBreakdown splits the running total by activity type.
func (g *GamificationController) ActionBreakdown(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	utils.Success(ctx, g.engine.PointsBreakdown(userID))
}

// CheckinStatus tells the client whether the daily check-in button should be
// available.
func (g *GamificationController) CheckinStatus(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	checkedIn, streak, lastAt := g.engine.CheckinStatus(userID)
	utils.Success(ctx, gin.H{
		"checkedInToday": checkedIn,
		"streak":         streak,
		"lastCheckin":    lastAt,
	})
}
