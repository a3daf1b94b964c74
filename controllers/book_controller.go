package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shelfquest/api/gamification"
	"github.com/shelfquest/api/middleware"
	"github.com/shelfquest/api/models"
	"github.com/shelfquest/api/utils"
)

// BookController manages CRUD operations for the user's library.
type BookController struct {
	db     *gorm.DB
	engine *gamification.Engine
}

// NewBookController creates a new BookController instance.
func NewBookController(db *gorm.DB, engine *gamification.Engine) *BookController {
	return &BookController{db: db, engine: engine}
}

// CreateBook adds a book to the authenticated user's library and records
// today's reading activity.
func (b *BookController) CreateBook(ctx *gin.Context) {
	var req struct {
		Title      string `json:"title" binding:"required,min=1"`
		Author     string `json:"author"`
		Status     string `json:"status"`
		TotalPages int    `json:"total_pages"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	title := utils.SanitizePlain(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "title cannot be empty")
		return
	}
	status := req.Status
	if status == "" {
		status = models.BookStatusToRead
	}
	if !models.ValidBookStatus(status) {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid book status")
		return
	}
	if req.TotalPages < 0 {
		utils.Error(ctx, http.StatusBadRequest, 40023, "total_pages cannot be negative")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	book := models.Book{
		UserID:     userID,
		Title:      title,
		Author:     utils.SanitizePlain(strings.TrimSpace(req.Author)),
		Status:     status,
		TotalPages: req.TotalPages,
	}
	if status == models.BookStatusCompleted {
		now := time.Now()
		book.CompletedAt = &now
	}

	if err := b.db.Create(&book).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create book")
		return
	}

	b.engine.RecordActivity(userID)
	utils.InvalidateByPrefix(userCachePrefix(userID, "books"))

	utils.Success(ctx, gin.H{"book": book})
}

// ListBooks returns the user's library, paginated, optionally filtered by
// status or a title/author search term.
func (b *BookController) ListBooks(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	status := strings.TrimSpace(ctx.Query("status"))
	search := strings.TrimSpace(ctx.Query("search"))

	// Cache plain list pages; search terms would explode the key space.
	cacheKey := fmt.Sprintf("%sstatus=%s:page=%d:size=%d", userCachePrefix(userID, "books"), status, page, pageSize)
	if search == "" {
		if raw, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(200, "application/json", raw)
			return
		}
	}

	query := b.db.Model(&models.Book{}).Where("user_id = ?", userID).Order("created_at DESC")
	if status != "" {
		if !models.ValidBookStatus(status) {
			utils.Error(ctx, http.StatusBadRequest, 40022, "invalid book status")
			return
		}
		query = query.Where("status = ?", status)
	}
	if search != "" {
		query = query.Where("title LIKE ? OR author LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to count books")
		return
	}

	var books []models.Book
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&books).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list books")
		return
	}

	payload := gin.H{
		"items":      books,
		"pagination": paginationMeta(page, pageSize, total),
	}
	if search == "" {
		utils.CacheSetJSON(cacheKey, wrapEnvelope(payload), 10*time.Minute)
	}
	utils.Success(ctx, payload)
}

// GetBook returns a single book. Other users' books are reported as missing,
// not forbidden.
func (b *BookController) GetBook(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var book models.Book
	if err := b.db.Where("user_id = ?", userID).First(&book, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40402, "book not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load book")
		return
	}
	utils.Success(ctx, gin.H{"book": book})
}

// UpdateBook applies partial updates: title, author, status transitions, and
// page progress. Moving into completed stamps completed_at; moving out clears it.
func (b *BookController) UpdateBook(ctx *gin.Context) {
	var req struct {
		Title      string `json:"title"`
		Author     string `json:"author"`
		Status     string `json:"status"`
		TotalPages *int   `json:"total_pages"`
		PagesRead  *int   `json:"pages_read"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid request payload")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var book models.Book
	if err := b.db.Where("user_id = ?", userID).First(&book, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40402, "book not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load book")
		return
	}

	if req.Title != "" {
		title := utils.SanitizePlain(strings.TrimSpace(req.Title))
		if title == "" {
			utils.Error(ctx, http.StatusBadRequest, 40021, "title cannot be empty")
			return
		}
		book.Title = title
	}
	if req.Author != "" {
		book.Author = utils.SanitizePlain(strings.TrimSpace(req.Author))
	}
	if req.TotalPages != nil {
		if *req.TotalPages < 0 {
			utils.Error(ctx, http.StatusBadRequest, 40023, "total_pages cannot be negative")
			return
		}
		book.TotalPages = *req.TotalPages
	}
	if req.PagesRead != nil {
		if *req.PagesRead < 0 {
			utils.Error(ctx, http.StatusBadRequest, 40025, "pages_read cannot be negative")
			return
		}
		book.PagesRead = *req.PagesRead
	}
	if book.TotalPages > 0 && book.PagesRead > book.TotalPages {
		book.PagesRead = book.TotalPages
	}

	completedNow := false
	if req.Status != "" && req.Status != book.Status {
		if !models.ValidBookStatus(req.Status) {
			utils.Error(ctx, http.StatusBadRequest, 40022, "invalid book status")
			return
		}
		if req.Status == models.BookStatusCompleted {
			now := time.Now()
			book.CompletedAt = &now
			completedNow = true
		} else {
			book.CompletedAt = nil
		}
		book.Status = req.Status
	}

	if err := b.db.Save(&book).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to update book")
		return
	}

	// finishing a book counts as reading activity for the streak
	if completedNow {
		b.engine.RecordActivity(userID)
	}
	utils.InvalidateByPrefix(userCachePrefix(userID, "books"))

	utils.Success(ctx, gin.H{"book": book})
}

// DeleteBook removes a book along with its notes and sessions. Point totals
// shrink automatically because they are recomputed from the remaining rows.
func (b *BookController) DeleteBook(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var book models.Book
	if err := b.db.Where("user_id = ?", userID).First(&book, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40402, "book not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load book")
		return
	}

	err := b.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", book.ID).Delete(&models.Note{}).Error; err != nil {
			return err
		}
		if err := tx.Where("book_id = ?", book.ID).Delete(&models.ReadingSession{}).Error; err != nil {
			return err
		}
		return tx.Delete(&book).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to delete book")
		return
	}

	utils.InvalidateByPrefix(userCachePrefix(userID, "books"))
	utils.InvalidateByPrefix(userCachePrefix(userID, "notes"))

	utils.Success(ctx, gin.H{"message": "book deleted"})
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 20
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func paginationMeta(page, pageSize int, total int64) gin.H {
	return gin.H{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
}

func userCachePrefix(userID uint, what string) string {
	return fmt.Sprintf("cache:user:%d:%s:", userID, what)
}

// wrapEnvelope wraps payloads in the standard response envelope so cached
// bytes can be served verbatim.
func wrapEnvelope(payload interface{}) interface{} {
	return struct {
		Code    int         `json:"code"`
		Message string      `json:"message"`
		Data    interface{} `json:"data"`
	}{Code: 0, Message: "success", Data: payload}
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}
