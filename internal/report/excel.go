package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/lingoprogress/internal/progress"
	"github.com/example/lingoprogress/pkg/models"
)

// Sheet names of the progress workbook
const (
	SummarySheet  = "Summary"
	LessonsSheet  = "Lessons"
	ChaptersSheet = "Chapters"
)

var (
	lessonHeader  = []interface{}{"Lesson", "Chapter", "Completed", "Score", "Time Spent", "Attempts", "Completed At"}
	chapterHeader = []interface{}{"Chapter", "Lessons Completed", "Total Lessons", "Average Score", "Time Spent", "Assessment Passed", "Assessment Score", "Unlocked At", "Completed At"}
)

// WriteProgress renders p as an xlsx workbook to w
func WriteProgress(w io.Writer, p models.UserProgress) error {
	f, err := build(p)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveProgress renders p as an xlsx workbook at path
func SaveProgress(path string, p models.UserProgress) error {
	f, err := build(p)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func build(p models.UserProgress) (*excelize.File, error) {
	f := excelize.NewFile()

	// The default sheet becomes the summary
	f.SetSheetName("Sheet1", SummarySheet)

	into, remaining := progress.LevelProgress(p.TotalXP)
	lastActive := ""
	if p.LastActiveDate != nil {
		lastActive = p.LastActiveDate.Format(time.RFC3339)
	}
	summary := [][]interface{}{
		{"Level", p.Level},
		{"Total XP", p.TotalXP},
		{"XP Into Level", into},
		{"XP To Next Level", remaining},
		{"Streak", p.Streak},
		{"Last Active", lastActive},
		{"Lessons Tracked", len(p.LessonsProgress)},
		{"Chapters Unlocked", len(p.ChaptersProgress)},
		{"Achievements", len(p.Achievements)},
	}
	if err := writeRows(f, SummarySheet, summary); err != nil {
		f.Close()
		return nil, err
	}

	f.NewSheet(LessonsSheet)
	if err := writeRows(f, LessonsSheet, lessonRows(p)); err != nil {
		f.Close()
		return nil, err
	}

	f.NewSheet(ChaptersSheet)
	if err := writeRows(f, ChaptersSheet, chapterRows(p)); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

func lessonRows(p models.UserProgress) [][]interface{} {
	ids := make([]string, 0, len(p.LessonsProgress))
	for id := range p.LessonsProgress {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := [][]interface{}{lessonHeader}
	for _, id := range ids {
		lp := p.LessonsProgress[id]
		score := ""
		if lp.Score != nil {
			score = fmt.Sprint(*lp.Score)
		}
		rows = append(rows, []interface{}{
			lp.LessonID, lp.ChapterID, yesNo(lp.Completed), score, lp.TimeSpent, lp.Attempts, formatTime(lp.CompletedAt),
		})
	}
	return rows
}

func chapterRows(p models.UserProgress) [][]interface{} {
	ids := make([]string, 0, len(p.ChaptersProgress))
	for id := range p.ChaptersProgress {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := [][]interface{}{chapterHeader}
	for _, id := range ids {
		cp := p.ChaptersProgress[id]
		assessment := ""
		if cp.AssessmentScore != nil {
			assessment = fmt.Sprintf("%.1f", *cp.AssessmentScore)
		}
		rows = append(rows, []interface{}{
			cp.ChapterID, cp.LessonsCompleted, cp.TotalLessons, fmt.Sprintf("%.1f", cp.AverageScore), cp.TotalTimeSpent,
			yesNo(cp.AssessmentPassed), assessment, cp.UnlockedAt.Format(time.RFC3339), formatTime(cp.CompletedAt),
		})
	}
	return rows
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
