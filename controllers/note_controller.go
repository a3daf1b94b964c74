package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shelfquest/api/gamification"
	"github.com/shelfquest/api/models"
	"github.com/shelfquest/api/utils"
)

// NoteController manages notes and highlights attached to books.
type NoteController struct {
	db     *gorm.DB
	engine *gamification.Engine
}

// NewNoteController creates a new NoteController instance.
func NewNoteController(db *gorm.DB, engine *gamification.Engine) *NoteController {
	return &NoteController{db: db, engine: engine}
}

// CreateNote attaches a note or highlight to one of the user's books and
// records today's reading activity.
func (n *NoteController) CreateNote(ctx *gin.Context) {
	var req struct {
		BookID  uint   `json:"book_id" binding:"required"`
		Type    string `json:"type"`
		Content string `json:"content" binding:"required"`
		Page    int    `json:"page"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	noteType := req.Type
	if noteType == "" {
		noteType = models.NoteTypeNote
	}
	if !models.ValidNoteType(noteType) {
		utils.Error(ctx, http.StatusBadRequest, 40031, "type must be note or highlight")
		return
	}
	content := utils.Sanitize(req.Content)
	if strings.TrimSpace(content) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40032, "content cannot be empty")
		return
	}
	if req.Page < 0 {
		utils.Error(ctx, http.StatusBadRequest, 40033, "page cannot be negative")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var book models.Book
	if err := n.db.Where("user_id = ?", userID).First(&book, req.BookID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40402, "book not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load book")
		return
	}

	note := models.Note{
		UserID:  userID,
		BookID:  book.ID,
		Type:    noteType,
		Content: content,
		Page:    req.Page,
	}
	if err := n.db.Create(&note).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to create note")
		return
	}

	n.engine.RecordActivity(userID)
	utils.InvalidateByPrefix(userCachePrefix(userID, "notes"))

	utils.Success(ctx, gin.H{"note": note})
}

// ListNotes returns the user's notes, paginated, optionally scoped to a book
// or a type.
func (n *NoteController) ListNotes(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	bookID := strings.TrimSpace(ctx.Query("book_id"))
	noteType := strings.TrimSpace(ctx.Query("type"))

	// Only unfiltered pages are cached; book and type filters hit the database.
	cacheKey := fmt.Sprintf("%spage=%d:size=%d", userCachePrefix(userID, "notes"), page, pageSize)
	if bookID == "" && noteType == "" {
		if raw, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(200, "application/json", raw)
			return
		}
	}

	query := n.db.Model(&models.Note{}).Where("user_id = ?", userID).Order("created_at DESC")
	if bookID != "" {
		query = query.Where("book_id = ?", bookID)
	}
	if noteType != "" {
		if !models.ValidNoteType(noteType) {
			utils.Error(ctx, http.StatusBadRequest, 40031, "type must be note or highlight")
			return
		}
		query = query.Where("type = ?", noteType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to count notes")
		return
	}

	var notes []models.Note
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&notes).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to list notes")
		return
	}

	// attach book titles so the client need not join
	bookIDs := make([]uint, 0, len(notes))
	for _, note := range notes {
		if note.BookID != 0 {
			bookIDs = append(bookIDs, note.BookID)
		}
	}
	bookIDs = utils.UniqueUint(bookIDs)
	bookTitles := map[uint]string{}
	if len(bookIDs) > 0 {
		var books []models.Book
		if err := n.db.Where("user_id = ?", userID).Find(&books, bookIDs).Error; err == nil {
			for _, b := range books {
				bookTitles[b.ID] = b.Title
			}
		}
	}

	payload := gin.H{
		"items":       notes,
		"book_titles": bookTitles,
		"pagination":  paginationMeta(page, pageSize, total),
	}
	if bookID == "" && noteType == "" {
		utils.CacheSetJSON(cacheKey, wrapEnvelope(payload), 10*time.Minute)
	}
	utils.Success(ctx, payload)
}

// GetNote returns a single note owned by the user.
func (n *NoteController) GetNote(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var note models.Note
	if err := n.db.Where("user_id = ?", userID).First(&note, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40403, "note not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to load note")
		return
	}
	utils.Success(ctx, gin.H{"note": note})
}

// UpdateNote edits a note's content, page, or type.
func (n *NoteController) UpdateNote(ctx *gin.Context) {
	var req struct {
		Content string `json:"content"`
		Type    string `json:"type"`
		Page    *int   `json:"page"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var note models.Note
	if err := n.db.Where("user_id = ?", userID).First(&note, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40403, "note not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to load note")
		return
	}

	if req.Content != "" {
		content := utils.Sanitize(req.Content)
		if strings.TrimSpace(content) == "" {
			utils.Error(ctx, http.StatusBadRequest, 40032, "content cannot be empty")
			return
		}
		note.Content = content
	}
	if req.Type != "" {
		if !models.ValidNoteType(req.Type) {
			utils.Error(ctx, http.StatusBadRequest, 40031, "type must be note or highlight")
			return
		}
		note.Type = req.Type
	}
	if req.Page != nil {
		if *req.Page < 0 {
			utils.Error(ctx, http.StatusBadRequest, 40033, "page cannot be negative")
			return
		}
		note.Page = *req.Page
	}

	if err := n.db.Save(&note).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to update note")
		return
	}
	utils.InvalidateByPrefix(userCachePrefix(userID, "notes"))

	utils.Success(ctx, gin.H{"note": note})
}

// DeleteNote removes a note. The points it earned disappear from the next
// stats read since totals are derived from rows.
func (n *NoteController) DeleteNote(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var note models.Note
	if err := n.db.Where("user_id = ?", userID).First(&note, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40403, "note not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to load note")
		return
	}

	if err := n.db.Delete(&note).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50035, "failed to delete note")
		return
	}
	utils.InvalidateByPrefix(userCachePrefix(userID, "notes"))

	utils.Success(ctx, gin.H{"message": "note deleted"})
}

// SummarizeNote sends the note text to the companion AI service and returns
// a one-paragraph summary. Results are cached by content hash.
func (n *NoteController) SummarizeNote(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var note models.Note
	if err := n.db.Where("user_id = ?", userID).First(&note, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40403, "note not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to load note")
		return
	}

	summary, err := utils.SummarizeText(ctx.Request.Context(), note.Content)
	if err != nil {
		if errors.Is(err, utils.ErrSummarizerDisabled) {
			utils.Error(ctx, http.StatusServiceUnavailable, 50040, "note summarizer is not configured")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to summarize note")
		return
	}
	utils.Success(ctx, gin.H{"summary": summary})
}
