package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/example/lingoprogress/internal/database"
	"github.com/example/lingoprogress/pkg/models"
)

type fakeAPI struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	stopped  bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() { f.stopped = true }

func (f *fakeAPI) lastText(t *testing.T) string {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("nothing sent")
	}
	msg, ok := f.sent[len(f.sent)-1].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("last sent is %T, want MessageConfig", f.sent[len(f.sent)-1])
	}
	return msg.Text
}

type fakeStore struct {
	snap    models.UserProgress
	streaks int
}

func (f *fakeStore) Snapshot() models.UserProgress { return f.snap }

func (f *fakeStore) UpdateStreak(context.Context) int {
	f.streaks++
	f.snap.Streak++
	return f.snap.Streak
}

type fakeHistory struct {
	items []database.Notification
	err   error
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]database.Notification, error) {
	if len(f.items) > limit {
		return f.items[:limit], f.err
	}
	return f.items, f.err
}

func command(chatID int64, cmd string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     cmd,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func sampleProgress() models.UserProgress {
	done := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return models.UserProgress{
		Level:   2,
		TotalXP: 1450,
		Streak:  1,
		LessonsProgress: map[string]models.LessonProgress{
			"1-1": {LessonID: "1-1", ChapterID: "1", Completed: true},
			"1-2": {LessonID: "1-2", ChapterID: "1"},
		},
		ChaptersProgress: map[string]models.ChapterProgress{
			"2": {ChapterID: "2", TotalLessons: 4},
			"1": {ChapterID: "1", LessonsCompleted: 4, TotalLessons: 4, AverageScore: 87.5, CompletedAt: &done},
		},
		Achievements: []string{"first_lesson"},
	}
}

func newTestBot(store ProgressStore, history History, chatID int64) (*Bot, *fakeAPI) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 4)}
	return New(api, store, history, chatID, zap.NewNop()), api
}

func TestProgressCommand(t *testing.T) {
	b, api := newTestBot(&fakeStore{snap: sampleProgress()}, nil, 0)
	b.handleUpdate(context.Background(), command(7, "/progress"))

	text := api.lastText(t)
	for _, want := range []string{"Level: 2 (450 XP in, 550 to next)", "Total XP: 1450", "Streak: 1 day\n", "Lessons completed: 1"} {
		if !strings.Contains(text, want) {
			t.Fatalf("progress text missing %q:\n%s", want, text)
		}
	}
	if strings.Index(text, "Chapter 1:") > strings.Index(text, "Chapter 2:") {
		t.Fatalf("chapters not sorted:\n%s", text)
	}
	if !strings.Contains(text, "✅ Chapter 1: 4/4 lessons, avg 88%") {
		t.Fatalf("completed chapter line missing:\n%s", text)
	}
}

func TestCheckinCommand(t *testing.T) {
	store := &fakeStore{snap: models.UserProgress{Streak: 2}}
	b, api := newTestBot(store, nil, 0)
	b.handleUpdate(context.Background(), command(7, "/checkin"))

	if store.streaks != 1 {
		t.Fatalf("UpdateStreak calls = %d, want 1", store.streaks)
	}
	if text := api.lastText(t); !strings.Contains(text, "Streak: 3 days") {
		t.Fatalf("checkin text = %q", text)
	}
}

func TestHistoryCommand(t *testing.T) {
	at := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		history History
		want    string
	}{
		{"no backend", nil, "not available"},
		{"empty", &fakeHistory{}, "No achievements yet"},
		{"error", &fakeHistory{err: errors.New("db gone")}, "failed to load history"},
		{"items", &fakeHistory{items: []database.Notification{{Title: "🚀 Level Up!", Body: "You reached level 2", CreatedAt: at}}}, "2024-03-02 🚀 Level Up!\nYou reached level 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, api := newTestBot(&fakeStore{}, tt.history, 0)
			b.handleUpdate(context.Background(), command(7, "/history"))
			if text := api.lastText(t); !strings.Contains(text, tt.want) {
				t.Fatalf("history text = %q, want %q", text, tt.want)
			}
		})
	}
}

func TestExportCommand(t *testing.T) {
	b, api := newTestBot(&fakeStore{snap: sampleProgress()}, nil, 0)
	b.handleUpdate(context.Background(), command(7, "/export"))

	if len(api.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(api.sent))
	}
	doc, ok := api.sent[0].(tgbotapi.DocumentConfig)
	if !ok {
		t.Fatalf("sent %T, want DocumentConfig", api.sent[0])
	}
	file, ok := doc.File.(tgbotapi.FileBytes)
	if !ok || file.Name != "progress.xlsx" || len(file.Bytes) == 0 {
		t.Fatalf("document file = %#v", doc.File)
	}
	if doc.ChatID != 7 {
		t.Fatalf("document chat = %d", doc.ChatID)
	}
}

func TestPrivateChat(t *testing.T) {
	store := &fakeStore{}
	b, api := newTestBot(store, nil, 42)

	b.handleUpdate(context.Background(), command(7, "/checkin"))
	if store.streaks != 0 {
		t.Fatal("foreign chat must not update the streak")
	}
	if text := api.lastText(t); text != "This bot is private." {
		t.Fatalf("text = %q", text)
	}

	b.handleUpdate(context.Background(), command(42, "/checkin"))
	if store.streaks != 1 {
		t.Fatal("configured chat should update the streak")
	}
}

func TestUnknownInput(t *testing.T) {
	b, api := newTestBot(&fakeStore{}, nil, 0)

	b.handleUpdate(context.Background(), command(7, "/bonjour"))
	if text := api.lastText(t); !strings.HasPrefix(text, "Unknown command") {
		t.Fatalf("text = %q", text)
	}
	b.handleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{Text: "salut", Chat: &tgbotapi.Chat{ID: 7}}})
	if text := api.lastText(t); !strings.HasPrefix(text, "I don't understand") {
		t.Fatalf("text = %q", text)
	}
}

func TestCallbackQuery(t *testing.T) {
	store := &fakeStore{}
	b, api := newTestBot(store, nil, 0)

	b.handleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Data:    "checkin",
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}},
	}})
	if len(api.requests) != 1 {
		t.Fatalf("callback answers = %d, want 1", len(api.requests))
	}
	if store.streaks != 1 {
		t.Fatalf("UpdateStreak calls = %d, want 1", store.streaks)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	b, api := newTestBot(&fakeStore{snap: sampleProgress()}, nil, 0)
	api.updates <- command(7, "/progress")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for len(api.updates) > 0 {
		select {
		case <-deadline:
			t.Fatal("update not consumed")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Start err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	b.Stop()
	if !api.stopped {
		t.Fatal("Stop should stop receiving updates")
	}
}
