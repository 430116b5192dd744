package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/lingoprogress/internal/database"
	"github.com/example/lingoprogress/internal/progress"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func TestTelegramNotifier(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegramNotifier(sender, 42)

	if err := n.NotifyAchievement(context.Background(), "🚀 Level Up!", "You reached level 3"); err != nil {
		t.Fatalf("NotifyAchievement: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.ChatID != 42 || msg.Text != "🚀 Level Up!\nYou reached level 3" {
		t.Fatalf("message = chat %d %q", msg.ChatID, msg.Text)
	}
}

func TestTelegramNotifierErrors(t *testing.T) {
	sender := &fakeSender{err: errors.New("flood wait")}
	n := NewTelegramNotifier(sender, 1)
	if err := n.NotifyAchievement(context.Background(), "t", "b"); err == nil || !strings.Contains(err.Error(), "flood wait") {
		t.Fatalf("err = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewTelegramNotifier(&fakeSender{}, 1).NotifyAchievement(ctx, "t", "b"); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled ctx err = %v", err)
	}
}

type fakeHistory struct {
	got []database.Notification
}

func (f *fakeHistory) Insert(_ context.Context, n database.Notification) error {
	f.got = append(f.got, n)
	return nil
}

func TestHistoryNotifier(t *testing.T) {
	at := time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC)
	repo := &fakeHistory{}
	n := NewHistoryNotifier(repo, func() time.Time { return at })

	if err := n.NotifyAchievement(context.Background(), "title", "body"); err != nil {
		t.Fatalf("NotifyAchievement: %v", err)
	}
	if len(repo.got) != 1 || repo.got[0].Title != "title" || repo.got[0].Body != "body" || !repo.got[0].CreatedAt.Equal(at) {
		t.Fatalf("recorded = %+v", repo.got)
	}
}

type countingNotifier struct {
	calls int
	err   error
}

func (c *countingNotifier) NotifyAchievement(context.Context, string, string) error {
	c.calls++
	return c.err
}

func TestMultiAttemptsAll(t *testing.T) {
	first := &countingNotifier{err: errors.New("first down")}
	second := &countingNotifier{}
	third := &countingNotifier{err: errors.New("third down")}

	err := Multi{first, second, third}.NotifyAchievement(context.Background(), "t", "b")
	if first.calls != 1 || second.calls != 1 || third.calls != 1 {
		t.Fatalf("calls = %d %d %d", first.calls, second.calls, third.calls)
	}
	if err == nil || !strings.Contains(err.Error(), "first down") || !strings.Contains(err.Error(), "third down") {
		t.Fatalf("err = %v", err)
	}
	if err := (Multi{second}).NotifyAchievement(context.Background(), "t", "b"); err != nil {
		t.Fatalf("all ok err = %v", err)
	}
}

func TestLogSinks(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)

	if err := NewLogNotifier(log).NotifyAchievement(context.Background(), "🔥 Streak Milestone!", "7 days in a row"); err != nil {
		t.Fatalf("LogNotifier: %v", err)
	}
	if err := NewLogSoundPlayer(log).Play(context.Background(), progress.CueStreakMilestone); err != nil {
		t.Fatalf("LogSoundPlayer: %v", err)
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("log entries = %d, want 2", len(entries))
	}
	if entries[0].LoggerName != "notify" || entries[0].ContextMap()["title"] != "🔥 Streak Milestone!" {
		t.Fatalf("notify entry = %+v", entries[0])
	}
	if entries[1].LoggerName != "sound" || entries[1].ContextMap()["cue"] != "streak_milestone" {
		t.Fatalf("sound entry = %+v", entries[1])
	}
}
