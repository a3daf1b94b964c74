package gamification

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shelfquest/api/models"
)

// fakeClock pins "now" so streak and check-in math is deterministic.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Book{},
		&models.Note{},
		&models.ReadingSession{},
		&models.DailyCheckin{},
		&models.DailyActivity{},
		&models.UserAchievement{},
		&models.Goal{},
	); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// newTestEngine builds an engine over a fresh in-memory database with the
// clock pinned to a Friday mid-morning.
func newTestEngine(t *testing.T) (*Engine, *gorm.DB, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 15, 10, 30, 0, 0, time.Local)}
	db := openTestDB(t)
	return New(db, Config{Clock: clock.Now}), db, clock
}

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("create %T: %v", value, err)
	}
}

func seedUser(t *testing.T, db *gorm.DB, username string) uint {
	t.Helper()
	u := models.User{Username: username, PasswordHash: "unused"}
	mustCreate(t, db, &u)
	return u.ID
}

func seedBook(t *testing.T, db *gorm.DB, userID uint, status string) models.Book {
	t.Helper()
	b := models.Book{UserID: userID, Title: "Seed Title", Status: status}
	mustCreate(t, db, &b)
	return b
}

func seedNote(t *testing.T, db *gorm.DB, userID, bookID uint, noteType string) models.Note {
	t.Helper()
	n := models.Note{UserID: userID, BookID: bookID, Type: noteType, Content: "seed content"}
	mustCreate(t, db, &n)
	return n
}

func seedSession(t *testing.T, db *gorm.DB, userID, bookID uint, minutes int, day time.Time) models.ReadingSession {
	t.Helper()
	s := models.ReadingSession{UserID: userID, BookID: bookID, Duration: minutes, SessionDate: dayStart(day)}
	mustCreate(t, db, &s)
	return s
}

func seedActivity(t *testing.T, db *gorm.DB, userID uint, day time.Time) {
	t.Helper()
	mustCreate(t, db, &models.DailyActivity{UserID: userID, StreakDate: dayStart(day), Count: 1})
}

func countRowsIn(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}
