package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shelfquest/api/gamification"
	"github.com/shelfquest/api/models"
	"github.com/shelfquest/api/utils"
)

// maxSessionMinutes caps a single sitting at 24 hours.
const maxSessionMinutes = 24 * 60

// SessionController manages reading session logs.
type SessionController struct {
	db     *gorm.DB
	engine *gamification.Engine
}

// NewSessionController creates a new SessionController instance.
func NewSessionController(db *gorm.DB, engine *gamification.Engine) *SessionController {
	return &SessionController{db: db, engine: engine}
}

// CreateSession logs one sitting. Duration can be given directly in minutes
// or derived from started_at/ended_at timestamps. The session is attributed
// to the calendar day of session_date (default today) and records activity
// on that day.
func (s *SessionController) CreateSession(ctx *gin.Context) {
	var req struct {
		BookID      uint       `json:"book_id"`
		Duration    int        `json:"duration"`
		StartedAt   *time.Time `json:"started_at"`
		EndedAt     *time.Time `json:"ended_at"`
		PagesRead   int        `json:"pages_read"`
		SessionDate string     `json:"session_date"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}

	duration := req.Duration
	if duration == 0 && req.StartedAt != nil && req.EndedAt != nil {
		duration = int(req.EndedAt.Sub(*req.StartedAt).Minutes())
	}
	if duration <= 0 || duration > maxSessionMinutes {
		utils.Error(ctx, http.StatusBadRequest, 40041, "duration must be between 1 and 1440 minutes")
		return
	}
	if req.PagesRead < 0 {
		utils.Error(ctx, http.StatusBadRequest, 40042, "pages_read cannot be negative")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if req.BookID != 0 {
		var book models.Book
		if err := s.db.Where("user_id = ?", userID).First(&book, req.BookID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				utils.Error(ctx, http.StatusNotFound, 40402, "book not found")
				return
			}
			utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load book")
			return
		}
	}

	sessionDate := time.Now()
	if req.SessionDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.SessionDate, time.Local)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40043, "session_date must be YYYY-MM-DD")
			return
		}
		if parsed.After(time.Now()) {
			utils.Error(ctx, http.StatusBadRequest, 40044, "session_date cannot be in the future")
			return
		}
		sessionDate = parsed
	} else if req.StartedAt != nil {
		sessionDate = *req.StartedAt
	}
	// store the day boundary so streak queries can match on equality
	sessionDay := time.Date(sessionDate.Year(), sessionDate.Month(), sessionDate.Day(), 0, 0, 0, 0, sessionDate.Location())

	session := models.ReadingSession{
		UserID:      userID,
		BookID:      req.BookID,
		Duration:    duration,
		PagesRead:   req.PagesRead,
		SessionDate: sessionDay,
	}
	if err := s.db.Create(&session).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to log session")
		return
	}

	s.engine.RecordActivityOn(userID, sessionDay)

	utils.Success(ctx, gin.H{"session": session})
}

// ListSessions returns the user's sessions newest first, optionally scoped
// to one book.
func (s *SessionController) ListSessions(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := s.db.Model(&models.ReadingSession{}).Where("user_id = ?", userID).
		Order("session_date DESC, created_at DESC")
	if bookID := strings.TrimSpace(ctx.Query("book_id")); bookID != "" {
		query = query.Where("book_id = ?", bookID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to count sessions")
		return
	}

	var sessions []models.ReadingSession
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&sessions).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to list sessions")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      sessions,
		"pagination": paginationMeta(page, pageSize, total),
	})
}

// DeleteSession removes a logged session. The day's activity row is left in
// place; only point totals change, since they are derived from session rows.
func (s *SessionController) DeleteSession(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var session models.ReadingSession
	if err := s.db.Where("user_id = ?", userID).First(&session, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40404, "session not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to load session")
		return
	}

	if err := s.db.Delete(&session).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to delete session")
		return
	}
	utils.Success(ctx, gin.H{"message": "session deleted"})
}
