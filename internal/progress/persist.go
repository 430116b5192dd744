package progress

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/example/lingoprogress/pkg/models"
)

// savedProgress mirrors models.UserProgress with every field optional,
// so fields missing from older blobs keep their default values.
type savedProgress struct {
	Level            *int                              `json:"level"`
	TotalXP          *int                              `json:"totalXP"`
	Streak           *int                              `json:"streak"`
	LastActiveDate   *time.Time                        `json:"lastActiveDate"`
	LessonsProgress  map[string]models.LessonProgress  `json:"lessonsProgress"`
	ChaptersProgress map[string]models.ChapterProgress `json:"chaptersProgress"`
	Achievements     []string                          `json:"achievements"`
}

func encodeProgress(p models.UserProgress) ([]byte, error) {
	return json.Marshal(p)
}

// decodeProgress overlays the top-level fields present in data onto defaults.
// Nested maps replace the default maps wholesale.
func decodeProgress(data []byte, defaults models.UserProgress) (models.UserProgress, error) {
	var saved savedProgress
	if err := json.Unmarshal(data, &saved); err != nil {
		return models.UserProgress{}, err
	}

	out := defaults
	if saved.Level != nil {
		out.Level = *saved.Level
	}
	if saved.TotalXP != nil {
		out.TotalXP = *saved.TotalXP
	}
	if saved.Streak != nil {
		out.Streak = *saved.Streak
	}
	if saved.LastActiveDate != nil {
		out.LastActiveDate = saved.LastActiveDate
	}
	if saved.LessonsProgress != nil {
		out.LessonsProgress = saved.LessonsProgress
	}
	if saved.ChaptersProgress != nil {
		out.ChaptersProgress = saved.ChaptersProgress
	}
	if saved.Achievements != nil {
		out.Achievements = normalizeAchievements(saved.Achievements)
	}
	return out, nil
}

func normalizeAchievements(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
