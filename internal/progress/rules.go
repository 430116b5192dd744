package progress

import (
	"time"

	"github.com/example/lingoprogress/pkg/models"
)

const (
	// LevelSize is the XP width of every level
	LevelSize = 1000

	// DefaultTotalLessons is the lesson count given to a freshly unlocked chapter
	DefaultTotalLessons = 4

	// FirstChapterID is unlocked in the default aggregate
	FirstChapterID = "1"

	// StorageKey is the persistence key of the aggregate
	StorageKey = "userProgress"
)

var (
	xpMilestones     = []int{100, 250, 500, 1000, 2000, 5000}
	streakMilestones = []int{3, 7, 14, 30, 50, 100}
)

// LevelForXP returns the level reached with totalXP
func LevelForXP(totalXP int) int {
	if totalXP < 0 {
		return 1
	}
	return totalXP/LevelSize + 1
}

// LevelProgress returns the XP earned inside the current level and the XP still needed for the next one.
func LevelProgress(totalXP int) (into, remaining int) {
	if totalXP < 0 {
		totalXP = 0
	}
	into = totalXP % LevelSize
	return into, LevelSize - into
}

// firstCrossed returns the smallest milestone m with prev < m <= next.
// Only one milestone is reported per transition even when several were jumped.
func firstCrossed(milestones []int, prev, next int) (int, bool) {
	for _, m := range milestones {
		if prev < m && m <= next {
			return m, true
		}
	}
	return 0, false
}

// calendarDaysBetween counts calendar days from a to b in loc. It is negative when b is on an earlier day.
func calendarDaysBetween(a, b time.Time, loc *time.Location) int {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// nextStreak applies the day-continuity rule
func nextStreak(current int, lastActive *time.Time, now time.Time, loc *time.Location) int {
	if lastActive == nil {
		return 1
	}
	switch days := calendarDaysBetween(*lastActive, now, loc); {
	case days <= 0:
		// same day, or the clock moved backwards
		return current
	case days == 1:
		return current + 1
	default:
		return 1
	}
}

// IsChapterUnlocked reports whether chapterID has a progress record
func IsChapterUnlocked(p models.UserProgress, chapterID string) bool {
	_, ok := p.ChaptersProgress[chapterID]
	return ok
}

// NeedsStreakReminder reports whether a running streak would be lost if the learner stays inactive today.
func NeedsStreakReminder(p models.UserProgress, now time.Time, loc *time.Location) bool {
	if p.Streak == 0 || p.LastActiveDate == nil {
		return false
	}
	return calendarDaysBetween(*p.LastActiveDate, now, loc) == 1
}
