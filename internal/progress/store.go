// Package progress holds the learner's progress aggregate and the XP, level,
// streak and unlock rules applied to it.
//
// Every mutation updates the in-memory aggregate atomically, dispatches its
// notifications and sound cues as a detached background task, and writes the
// whole aggregate through the Persistence adapter before returning. Failures
// of either side effect are logged and never reach the caller.
package progress

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/lingoprogress/internal/metrics"
	"github.com/example/lingoprogress/pkg/models"
)

// Persistence stores opaque blobs under fixed keys
type Persistence interface {
	// Load returns nil, nil when key is absent
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

// Notifier delivers achievement notifications
type Notifier interface {
	NotifyAchievement(ctx context.Context, title, body string) error
}

// SoundCue names a sound effect played on a state transition
type SoundCue string

const (
	CueLessonComplete   SoundCue = "lesson_complete"
	CuePerfectScore     SoundCue = "perfect_score"
	CueChapterComplete  SoundCue = "chapter_complete"
	CueAssessmentPassed SoundCue = "assessment_passed"
	CueLevelUp          SoundCue = "level_up"
	CueXPMilestone      SoundCue = "xp_milestone"
	CueStreakMilestone  SoundCue = "streak_milestone"
	CueXPGain           SoundCue = "xp_gain"
)

// SoundPlayer plays sound cues
type SoundPlayer interface {
	Play(ctx context.Context, cue SoundCue) error
}

// Options configures a Store. Zero values are replaced with defaults.
type Options struct {
	Notifier      Notifier
	Sounds        SoundPlayer
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
	Clock         func() time.Time
	Location      *time.Location // calendar used for streak days
	Key           string
	EffectTimeout time.Duration
}

// Store owns the UserProgress aggregate
type Store struct {
	mu       sync.RWMutex
	progress models.UserProgress
	version  uint64

	saveMu       sync.Mutex
	savedVersion uint64

	persist       Persistence
	notifier      Notifier
	sounds        SoundPlayer
	log           *zap.Logger
	metrics       *metrics.Metrics
	clock         func() time.Time
	loc           *time.Location
	key           string
	effectTimeout time.Duration

	effects sync.WaitGroup
}

// NewStore creates a store holding the default aggregate. Call Load to read persisted progress.
func NewStore(persist Persistence, opts Options) *Store {
	s := &Store{
		persist:       persist,
		notifier:      opts.Notifier,
		sounds:        opts.Sounds,
		log:           opts.Logger,
		metrics:       opts.Metrics,
		clock:         opts.Clock,
		loc:           opts.Location,
		key:           opts.Key,
		effectTimeout: opts.EffectTimeout,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.Named("progress")
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.key == "" {
		s.key = StorageKey
	}
	if s.effectTimeout <= 0 {
		s.effectTimeout = 10 * time.Second
	}
	s.progress = DefaultProgress(s.now())
	return s
}

// DefaultProgress is the aggregate of a learner with no history
func DefaultProgress(now time.Time) models.UserProgress {
	return models.UserProgress{
		Level:           1,
		LessonsProgress: map[string]models.LessonProgress{},
		ChaptersProgress: map[string]models.ChapterProgress{
			FirstChapterID: newChapter(FirstChapterID, now),
		},
		Achievements: []string{},
	}
}

func newChapter(id string, now time.Time) models.ChapterProgress {
	return models.ChapterProgress{
		ChapterID:    id,
		TotalLessons: DefaultTotalLessons,
		UnlockedAt:   now,
	}
}

// now strips the monotonic reading so stored timestamps survive a JSON round trip unchanged
func (s *Store) now() time.Time {
	return s.clock().Round(0)
}

// Load replaces the in-memory aggregate with the persisted one.
// Missing or unreadable data leaves the default aggregate in place.
func (s *Store) Load(ctx context.Context) {
	loaded := DefaultProgress(s.now())

	if s.persist != nil {
		data, err := s.persist.Load(ctx, s.key)
		switch {
		case err != nil:
			s.metrics.PersistFailure("load")
			s.log.Warn("failed to load progress, using defaults", zap.String("key", s.key), zap.Error(err))
		case data == nil:
			s.log.Info("no saved progress, using defaults", zap.String("key", s.key))
		default:
			merged, err := decodeProgress(data, loaded)
			if err != nil {
				s.metrics.PersistFailure("decode")
				s.log.Warn("saved progress is unreadable, using defaults", zap.String("key", s.key), zap.Error(err))
			} else {
				loaded = merged
			}
		}
	}

	s.mu.Lock()
	s.progress = loaded
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the whole aggregate
func (s *Store) Snapshot() models.UserProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress.Clone()
}

// LessonProgress returns the stored record for lessonID
func (s *Store) LessonProgress(lessonID string) (models.LessonProgress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lp, ok := s.progress.LessonsProgress[lessonID]
	if !ok {
		return models.LessonProgress{}, false
	}
	return lp.Clone(), true
}

// ChapterProgress returns the stored record for chapterID
func (s *Store) ChapterProgress(chapterID string) (models.ChapterProgress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.progress.ChaptersProgress[chapterID]
	if !ok {
		return models.ChapterProgress{}, false
	}
	return cp.Clone(), true
}

// UpdateLessonProgress replaces the record for rec.LessonID with rec.
// Partial updates are not supported: the previous record is compared as a whole to decide which notifications fire.
func (s *Store) UpdateLessonProgress(ctx context.Context, rec models.LessonProgress) error {
	if err := validateLesson(rec); err != nil {
		return err
	}
	rec = rec.Clone()

	s.mutate(ctx, "update_lesson", func(p *models.UserProgress) ([]effect, bool) {
		prev, had := p.LessonsProgress[rec.LessonID]
		p.LessonsProgress[rec.LessonID] = rec

		var out []effect
		if rec.Completed && (!had || !prev.Completed) {
			out = append(out, effect{
				kind:  "lesson_completed",
				title: "🎉 Lesson Complete!",
				body:  fmt.Sprintf("You finished lesson %s", rec.LessonID),
				cue:   CueLessonComplete,
			})
		}
		if isPerfect(rec.Score) && (!had || !isPerfect(prev.Score)) {
			out = append(out, effect{
				kind:  "perfect_score",
				title: "⭐ Perfect Score!",
				body:  fmt.Sprintf("100%% on lesson %s", rec.LessonID),
				cue:   CuePerfectScore,
			})
		}
		return out, true
	})
	return nil
}

func isPerfect(score *int) bool {
	return score != nil && *score == 100
}

// UpdateChapterProgress replaces the record for rec.ChapterID with rec
func (s *Store) UpdateChapterProgress(ctx context.Context, rec models.ChapterProgress) error {
	if err := validateChapter(rec); err != nil {
		return err
	}
	rec = rec.Clone()

	s.mutate(ctx, "update_chapter", func(p *models.UserProgress) ([]effect, bool) {
		return applyChapter(p, rec), true
	})
	return nil
}

func applyChapter(p *models.UserProgress, rec models.ChapterProgress) []effect {
	prev, had := p.ChaptersProgress[rec.ChapterID]
	p.ChaptersProgress[rec.ChapterID] = rec

	var out []effect
	if rec.CompletedAt != nil && (!had || prev.CompletedAt == nil) {
		out = append(out, effect{
			kind:  "chapter_completed",
			title: "🏆 Chapter Complete!",
			body:  fmt.Sprintf("You completed chapter %s", rec.ChapterID),
			cue:   CueChapterComplete,
		})
	}
	if rec.AssessmentPassed && (!had || !prev.AssessmentPassed) {
		score := 0.0
		if rec.AssessmentScore != nil {
			score = *rec.AssessmentScore
		}
		out = append(out, effect{
			kind:  "assessment_passed",
			title: "✅ Assessment Passed!",
			body:  fmt.Sprintf("Chapter %s assessment passed with %.0f%%", rec.ChapterID, score),
			cue:   CueAssessmentPassed,
		})
	}
	return out
}

// UnlockChapter creates an empty record for chapterID. Unlocking an unlocked chapter does nothing.
func (s *Store) UnlockChapter(ctx context.Context, chapterID string) error {
	if chapterID == "" {
		return fmt.Errorf("%w: chapter id is empty", ErrInvalidRecord)
	}
	now := s.now()

	s.mutate(ctx, "unlock_chapter", func(p *models.UserProgress) ([]effect, bool) {
		if _, ok := p.ChaptersProgress[chapterID]; ok {
			return nil, false
		}
		return applyChapter(p, newChapter(chapterID, now)), true
	})
	return nil
}

// AddXP adds amount to the total and recomputes the level
func (s *Store) AddXP(ctx context.Context, amount int) error {
	if amount < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeXP, amount)
	}

	s.mutate(ctx, "add_xp", func(p *models.UserProgress) ([]effect, bool) {
		prevXP, prevLevel := p.TotalXP, p.Level
		p.TotalXP += amount
		p.Level = LevelForXP(p.TotalXP)

		var out []effect
		if p.Level > prevLevel {
			out = append(out, effect{
				kind:  "level_up",
				title: "🚀 Level Up!",
				body:  fmt.Sprintf("You reached level %d", p.Level),
				cue:   CueLevelUp,
			})
		}
		if m, ok := firstCrossed(xpMilestones, prevXP, p.TotalXP); ok {
			out = append(out, effect{
				kind:  "xp_milestone",
				title: "💎 XP Milestone!",
				body:  fmt.Sprintf("You earned %d XP", m),
				cue:   CueXPMilestone,
			})
		}
		if amount > 0 {
			out = append(out, effect{kind: "xp_gain", cue: CueXPGain})
		}
		return out, true
	})
	return nil
}

// UpdateStreak records activity now and returns the resulting streak
func (s *Store) UpdateStreak(ctx context.Context) int {
	now := s.now()
	var streak int

	s.mutate(ctx, "update_streak", func(p *models.UserProgress) ([]effect, bool) {
		prev := p.Streak
		p.Streak = nextStreak(p.Streak, p.LastActiveDate, now, s.loc)
		p.LastActiveDate = &now
		streak = p.Streak

		if m, ok := firstCrossed(streakMilestones, prev, p.Streak); ok {
			return []effect{{
				kind:  "streak_milestone",
				title: "🔥 Streak Milestone!",
				body:  fmt.Sprintf("%d days in a row", m),
				cue:   CueStreakMilestone,
			}}, true
		}
		return nil, true
	})
	return streak
}

// UnlockAchievement adds id to the achievement set. Achievements are never removed.
func (s *Store) UnlockAchievement(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: achievement id is empty", ErrInvalidRecord)
	}

	s.mutate(ctx, "unlock_achievement", func(p *models.UserProgress) ([]effect, bool) {
		i := sort.SearchStrings(p.Achievements, id)
		if i < len(p.Achievements) && p.Achievements[i] == id {
			return nil, false
		}
		p.Achievements = append(p.Achievements, "")
		copy(p.Achievements[i+1:], p.Achievements[i:])
		p.Achievements[i] = id

		return []effect{{
			kind:  "achievement_unlocked",
			title: "🏅 Achievement Unlocked!",
			body:  id,
		}}, true
	})
	return nil
}

// Persist writes the current aggregate unless it is unchanged since the last
// successful save. An aggregate never mutated since Load is not written.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.RLock()
	snap := s.progress.Clone()
	version := s.version
	s.mu.RUnlock()

	return s.save(ctx, version, snap)
}

// Wait blocks until all dispatched side effects have finished
func (s *Store) Wait() {
	s.effects.Wait()
}

// mutate applies fn under the write lock. When fn reports a change the
// effects are dispatched and the new snapshot is written through.
func (s *Store) mutate(ctx context.Context, op string, fn func(p *models.UserProgress) ([]effect, bool)) {
	s.mu.Lock()
	effects, changed := fn(&s.progress)
	if !changed {
		s.mu.Unlock()
		return
	}
	s.version++
	version := s.version
	snap := s.progress.Clone()
	s.mu.Unlock()

	s.metrics.Mutation(op)
	s.dispatch(op, effects)

	if err := s.save(ctx, version, snap); err != nil {
		s.log.Error("failed to persist progress", zap.String("op", op), zap.Error(err))
	}
}

func (s *Store) save(ctx context.Context, version uint64, snap models.UserProgress) error {
	if s.persist == nil {
		return nil
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	// unchanged since load, or a newer snapshot already reached storage
	if version <= s.savedVersion {
		return nil
	}

	data, err := encodeProgress(snap)
	if err != nil {
		s.metrics.PersistFailure("encode")
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	if err := s.persist.Save(ctx, s.key, data); err != nil {
		s.metrics.PersistFailure("save")
		return fmt.Errorf("failed to save progress: %w", err)
	}
	s.savedVersion = version
	return nil
}
