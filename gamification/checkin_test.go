package gamification

import (
	"errors"
	"testing"
	"time"

	"github.com/shelfquest/api/models"
)

func TestCheckinFirstTime(t *testing.T) {
	e, db, clock := newTestEngine(t)
	uid := seedUser(t, db, "newcomer")

	res, err := e.Checkin(uid)
	if err != nil {
		t.Fatalf("Checkin: %v", err)
	}
	if res.Streak != 1 {
		t.Fatalf("Streak = %d, want 1", res.Streak)
	}
	if res.PointsAwarded != 10 {
		t.Fatalf("PointsAwarded = %d, want the default 10", res.PointsAwarded)
	}
	if !sameDay(res.CheckinDate, clock.Now()) {
		t.Fatalf("CheckinDate = %v, want today", res.CheckinDate)
	}

	if n := countRowsIn(t, db, &models.DailyCheckin{}, "user_id = ?", uid); n != 1 {
		t.Fatalf("check-in rows = %d, want 1", n)
	}
	// the check-in must also land in the activity table
	if n := countRowsIn(t, db, &models.DailyActivity{}, "user_id = ?", uid); n != 1 {
		t.Fatalf("activity rows = %d, want 1", n)
	}
}

func TestCheckinSameDayRejected(t *testing.T) {
	e, db, _ := newTestEngine(t)
	uid := seedUser(t, db, "eager")

	if _, err := e.Checkin(uid); err != nil {
		t.Fatalf("first Checkin: %v", err)
	}
	_, err := e.Checkin(uid)
	if !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Fatalf("second Checkin error = %v, want ErrAlreadyCheckedIn", err)
	}

	if n := countRowsIn(t, db, &models.DailyCheckin{}, "user_id = ?", uid); n != 1 {
		t.Fatalf("check-in rows after rejection = %d, want 1", n)
	}
}

func TestCheckinExtendsYesterdayStreak(t *testing.T) {
	e, db, clock := newTestEngine(t)
	uid := seedUser(t, db, "returning")

	// streak of 4 recorded yesterday
	mustCreate(t, db, &models.DailyCheckin{
		UserID:      uid,
		CheckinDate: dayStart(clock.Now().AddDate(0, 0, -1)),
		Streak:      4,
	})

	res, err := e.Checkin(uid)
	if err != nil {
		t.Fatalf("Checkin: %v", err)
	}
	if res.Streak != 5 {
		t.Fatalf("Streak = %d, want 5", res.Streak)
	}
}

func TestCheckinRestartsAfterGap(t *testing.T) {
	e, db, clock := newTestEngine(t)
	uid := seedUser(t, db, "lapser")

	mustCreate(t, db, &models.DailyCheckin{
		UserID:      uid,
		CheckinDate: dayStart(clock.Now().AddDate(0, 0, -3)),
		Streak:      5,
	})

	res, err := e.Checkin(uid)
	if err != nil {
		t.Fatalf("Checkin: %v", err)
	}
	if res.Streak != 1 {
		t.Fatalf("Streak = %d, want 1 after a gap", res.Streak)
	}
}

func TestCheckinAcrossDays(t *testing.T) {
	e, db, clock := newTestEngine(t)
	uid := seedUser(t, db, "daily")

	for day := 0; day < 3; day++ {
		res, err := e.Checkin(uid)
		if err != nil {
			t.Fatalf("Checkin on day %d: %v", day, err)
		}
		if res.Streak != day+1 {
			t.Fatalf("Streak on day %d = %d, want %d", day, res.Streak, day+1)
		}
		clock.Advance(24 * time.Hour)
	}

	if n := countRowsIn(t, db, &models.DailyCheckin{}, "user_id = ?", uid); n != 3 {
		t.Fatalf("check-in rows = %d, want 3", n)
	}
}

func TestCheckinConfiguredPoints(t *testing.T) {
	db := openTestDB(t)
	clock := &fakeClock{now: time.Date(2024, 3, 15, 8, 0, 0, 0, time.Local)}
	e := New(db, Config{CheckinPoints: 25, Clock: clock.Now})
	uid := seedUser(t, db, "rewarded")

	res, err := e.Checkin(uid)
	if err != nil {
		t.Fatalf("Checkin: %v", err)
	}
	if res.PointsAwarded != 25 {
		t.Fatalf("PointsAwarded = %d, want 25", res.PointsAwarded)
	}
}

func TestCheckinStatus(t *testing.T) {
	e, db, clock := newTestEngine(t)
	uid := seedUser(t, db, "watcher")

	checkedIn, streak, lastAt := e.CheckinStatus(uid)
	if checkedIn || streak != 0 || lastAt != nil {
		t.Fatalf("status before any check-in = (%v, %d, %v), want (false, 0, nil)", checkedIn, streak, lastAt)
	}

	if _, err := e.Checkin(uid); err != nil {
		t.Fatalf("Checkin: %v", err)
	}

	checkedIn, streak, lastAt = e.CheckinStatus(uid)
	if !checkedIn {
		t.Fatal("checkedIn = false after checking in today")
	}
	if streak != 1 {
		t.Fatalf("streak = %d, want 1", streak)
	}
	if lastAt == nil || !sameDay(*lastAt, clock.Now()) {
		t.Fatalf("lastAt = %v, want today", lastAt)
	}

	clock.Advance(24 * time.Hour)
	checkedIn, streak, _ = e.CheckinStatus(uid)
	if checkedIn {
		t.Fatal("checkedIn = true the next morning without a new check-in")
	}
	if streak != 1 {
		t.Fatalf("streak = %d, want the last recorded value 1", streak)
	}
}
