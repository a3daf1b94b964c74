package main

import (
	"time"

	"github.com/shelfquest/api/config"
	"github.com/shelfquest/api/models"
	"github.com/shelfquest/api/routes"
	"github.com/shelfquest/api/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Book{},
		&models.Note{},
		&models.ReadingSession{},
		&models.DailyCheckin{},
		&models.DailyActivity{},
		&models.UserAchievement{},
		&models.Goal{},
	)

	// Captcha answers move to Redis so verification survives restarts and
	// works across instances.
	utils.EnableRedisCaptchaStore(5 * time.Minute)

	r := routes.SetupRouter(db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
