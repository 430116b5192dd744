package bot

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/lingoprogress/internal/database"
	"github.com/example/lingoprogress/internal/progress"
	"github.com/example/lingoprogress/internal/report"
	"github.com/example/lingoprogress/pkg/models"
)

const historyLimit = 10

const welcomeText = `Bienvenue! 🇫🇷

Available commands:
/progress - Show your level, XP and chapters
/checkin - Count today towards your streak
/history - Show recent achievements
/export - Download your progress as a spreadsheet`

func (b *Bot) handleHistory(ctx context.Context, chatID int64) {
	if b.history == nil {
		b.reply(chatID, "Achievement history is not available with this storage backend.")
		return
	}
	items, err := b.history.Recent(ctx, historyLimit)
	if err != nil {
		b.sendError(chatID, "failed to load history", err)
		return
	}
	b.reply(chatID, renderHistory(items))
}

func (b *Bot) handleExport(chatID int64) {
	var buf bytes.Buffer
	if err := report.WriteProgress(&buf, b.store.Snapshot()); err != nil {
		b.sendError(chatID, "failed to build report", err)
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "progress.xlsx", Bytes: buf.Bytes()})
	doc.Caption = "📄 Your progress"
	b.send(doc)
}

func renderProgress(p models.UserProgress) string {
	into, remaining := progress.LevelProgress(p.TotalXP)

	completed := 0
	for _, lp := range p.LessonsProgress {
		if lp.Completed {
			completed++
		}
	}

	var text strings.Builder
	text.WriteString("📊 Your progress\n\n")
	text.WriteString(fmt.Sprintf("Level: %d (%d XP in, %d to next)\n", p.Level, into, remaining))
	text.WriteString(fmt.Sprintf("Total XP: %d\n", p.TotalXP))
	text.WriteString(fmt.Sprintf("Streak: %d %s\n", p.Streak, plural(p.Streak, "day", "days")))
	text.WriteString(fmt.Sprintf("Lessons completed: %d\n", completed))
	text.WriteString(fmt.Sprintf("Achievements: %d\n", len(p.Achievements)))

	ids := make([]string, 0, len(p.ChaptersProgress))
	for id := range p.ChaptersProgress {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) > 0 {
		text.WriteString("\nChapters:\n")
	}
	for _, id := range ids {
		cp := p.ChaptersProgress[id]
		mark := "🔓"
		if cp.CompletedAt != nil {
			mark = "✅"
		}
		text.WriteString(fmt.Sprintf("%s Chapter %s: %d/%d lessons, avg %.0f%%\n",
			mark, cp.ChapterID, cp.LessonsCompleted, cp.TotalLessons, cp.AverageScore))
	}
	return text.String()
}

func renderCheckin(streak int) string {
	return fmt.Sprintf("🔥 Streak: %d %s. À demain!", streak, plural(streak, "day", "days"))
}

func renderHistory(items []database.Notification) string {
	if len(items) == 0 {
		return "No achievements yet. Finish a lesson to earn your first one!"
	}
	var text strings.Builder
	text.WriteString("🏅 Recent achievements\n\n")
	for _, n := range items {
		text.WriteString(fmt.Sprintf("%s %s\n%s\n\n", n.CreatedAt.Format("2006-01-02"), n.Title, n.Body))
	}
	return strings.TrimRight(text.String(), "\n")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
