package progress

import (
	"errors"
	"fmt"

	"github.com/example/lingoprogress/pkg/models"
)

var (
	ErrInvalidRecord = errors.New("invalid progress record")
	ErrNegativeXP    = errors.New("xp amount must not be negative")
)

func validateLesson(rec models.LessonProgress) error {
	switch {
	case rec.LessonID == "":
		return fmt.Errorf("%w: lesson id is empty", ErrInvalidRecord)
	case rec.ChapterID == "":
		return fmt.Errorf("%w: lesson %q has no chapter id", ErrInvalidRecord, rec.LessonID)
	case rec.Score != nil && (*rec.Score < 0 || *rec.Score > 100):
		return fmt.Errorf("%w: lesson %q score %d out of range", ErrInvalidRecord, rec.LessonID, *rec.Score)
	case rec.TimeSpent < 0:
		return fmt.Errorf("%w: lesson %q has negative time spent", ErrInvalidRecord, rec.LessonID)
	case rec.Attempts < 1:
		return fmt.Errorf("%w: lesson %q needs at least one attempt", ErrInvalidRecord, rec.LessonID)
	}
	return nil
}

func validateChapter(rec models.ChapterProgress) error {
	switch {
	case rec.ChapterID == "":
		return fmt.Errorf("%w: chapter id is empty", ErrInvalidRecord)
	case rec.LessonsCompleted < 0 || rec.TotalLessons < 0:
		return fmt.Errorf("%w: chapter %q has negative lesson counts", ErrInvalidRecord, rec.ChapterID)
	case rec.AverageScore < 0 || rec.AverageScore > 100:
		return fmt.Errorf("%w: chapter %q average score out of range", ErrInvalidRecord, rec.ChapterID)
	case rec.TotalTimeSpent < 0:
		return fmt.Errorf("%w: chapter %q has negative time spent", ErrInvalidRecord, rec.ChapterID)
	case rec.AssessmentScore != nil && (*rec.AssessmentScore < 0 || *rec.AssessmentScore > 100):
		return fmt.Errorf("%w: chapter %q assessment score out of range", ErrInvalidRecord, rec.ChapterID)
	}
	return nil
}
