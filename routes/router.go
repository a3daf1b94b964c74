package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shelfquest/api/config"
	"github.com/shelfquest/api/controllers"
	"github.com/shelfquest/api/gamification"
	"github.com/shelfquest/api/middleware"
	"github.com/shelfquest/api/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		// wildcard origins cannot carry credentials
		corsCfg.AllowCredentials = false
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	engine := gamification.New(db, gamification.Config{CheckinPoints: cfg.CheckinRewardPoints})

	authController := controllers.NewAuthController(db)
	bookController := controllers.NewBookController(db, engine)
	noteController := controllers.NewNoteController(db, engine)
	sessionController := controllers.NewSessionController(db, engine)
	gamificationController := controllers.NewGamificationController(db, engine)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/send-email-code", authController.SendEmailCode)
	authGroup.GET("/captcha", authController.Captcha)
	authGroup.POST("/captcha/verify", authController.CaptchaVerify)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	protected.POST("/books", bookController.CreateBook)
	protected.GET("/books", bookController.ListBooks)
	protected.GET("/books/:id", bookController.GetBook)
	protected.PATCH("/books/:id", bookController.UpdateBook)
	protected.DELETE("/books/:id", bookController.DeleteBook)

	protected.POST("/notes", noteController.CreateNote)
	protected.GET("/notes", noteController.ListNotes)
	protected.GET("/notes/:id", noteController.GetNote)
	protected.PATCH("/notes/:id", noteController.UpdateNote)
	protected.DELETE("/notes/:id", noteController.DeleteNote)
	protected.POST("/notes/:id/summarize", noteController.SummarizeNote)

	protected.POST("/sessions", sessionController.CreateSession)
	protected.GET("/sessions", sessionController.ListSessions)
	protected.DELETE("/sessions/:id", sessionController.DeleteSession)

	gamificationGroup := protected.Group("/gamification")
	gamificationGroup.GET("/stats", gamificationController.Stats)
	gamificationGroup.GET("/achievements", gamificationController.Achievements)
	gamificationGroup.GET("/goals", gamificationController.ListGoals)
	gamificationGroup.POST("/goals", gamificationController.CreateGoal)
	gamificationGroup.PATCH("/goals/:id", gamificationController.UpdateGoal)
	gamificationGroup.DELETE("/goals/:id", gamificationController.DeleteGoal)
	gamificationGroup.POST("/actions", gamificationController.Action)
	gamificationGroup.GET("/actions/history", gamificationController.ActionHistory)
	gamificationGroup.GET("/actions/breakdown", gamificationController.ActionBreakdown)
	gamificationGroup.GET("/checkin", gamificationController.CheckinStatus)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
