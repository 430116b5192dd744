package models

import "time"

// UserProgress is the learner's whole progress aggregate. It is persisted as a single JSON blob.
type UserProgress struct {
	Level            int                        `json:"level"`
	TotalXP          int                        `json:"totalXP"`
	Streak           int                        `json:"streak"`
	LastActiveDate   *time.Time                 `json:"lastActiveDate,omitempty"`
	LessonsProgress  map[string]LessonProgress  `json:"lessonsProgress"`
	ChaptersProgress map[string]ChapterProgress `json:"chaptersProgress"`
	Achievements     []string                   `json:"achievements"` // sorted, unique
}

// LessonProgress is the latest attempt record for one lesson
type LessonProgress struct {
	LessonID    string     `json:"lessonId"`
	ChapterID   string     `json:"chapterId"`
	Completed   bool       `json:"completed"`
	Score       *int       `json:"score,omitempty"` // 0-100
	TimeSpent   int        `json:"timeSpent"`       // caller-defined unit
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Attempts    int        `json:"attempts"`
}

// ChapterProgress tracks one unlocked chapter
type ChapterProgress struct {
	ChapterID        string     `json:"chapterId"`
	LessonsCompleted int        `json:"lessonsCompleted"`
	TotalLessons     int        `json:"totalLessons"`
	AverageScore     float64    `json:"averageScore"`
	TotalTimeSpent   int        `json:"totalTimeSpent"`
	AssessmentPassed bool       `json:"assessmentPassed"`
	AssessmentScore  *float64   `json:"assessmentScore,omitempty"`
	UnlockedAt       time.Time  `json:"unlockedAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}

// Clone returns a deep copy so callers can never reach the store's maps.
func (p UserProgress) Clone() UserProgress {
	out := p
	out.LastActiveDate = cloneTime(p.LastActiveDate)

	out.LessonsProgress = make(map[string]LessonProgress, len(p.LessonsProgress))
	for id, lp := range p.LessonsProgress {
		out.LessonsProgress[id] = lp.Clone()
	}

	out.ChaptersProgress = make(map[string]ChapterProgress, len(p.ChaptersProgress))
	for id, cp := range p.ChaptersProgress {
		out.ChaptersProgress[id] = cp.Clone()
	}

	out.Achievements = append(make([]string, 0, len(p.Achievements)), p.Achievements...)
	return out
}

// HasAchievement reports whether id has been unlocked
func (p UserProgress) HasAchievement(id string) bool {
	for _, a := range p.Achievements {
		if a == id {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no pointers with the original
func (l LessonProgress) Clone() LessonProgress {
	out := l
	if l.Score != nil {
		score := *l.Score
		out.Score = &score
	}
	out.CompletedAt = cloneTime(l.CompletedAt)
	return out
}

// Clone returns a copy that shares no pointers with the original
func (c ChapterProgress) Clone() ChapterProgress {
	out := c
	if c.AssessmentScore != nil {
		score := *c.AssessmentScore
		out.AssessmentScore = &score
	}
	out.CompletedAt = cloneTime(c.CompletedAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
