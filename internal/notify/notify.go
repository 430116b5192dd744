// Package notify delivers achievement notifications and sound cues raised by the progress store.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/example/lingoprogress/internal/database"
	"github.com/example/lingoprogress/internal/progress"
)

// LogNotifier writes notifications to the log
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log.Named("notify")}
}

func (n *LogNotifier) NotifyAchievement(_ context.Context, title, body string) error {
	n.log.Info("achievement", zap.String("title", title), zap.String("body", body))
	return nil
}

// LogSoundPlayer logs sound cues. Playback itself happens on the client device.
type LogSoundPlayer struct {
	log *zap.Logger
}

func NewLogSoundPlayer(log *zap.Logger) *LogSoundPlayer {
	return &LogSoundPlayer{log: log.Named("sound")}
}

func (p *LogSoundPlayer) Play(_ context.Context, cue progress.SoundCue) error {
	p.log.Debug("sound cue", zap.String("cue", string(cue)))
	return nil
}

// Sender is the part of *tgbotapi.BotAPI the Telegram notifier needs
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends notifications to one chat
type TelegramNotifier struct {
	sender Sender
	chatID int64
}

func NewTelegramNotifier(sender Sender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, chatID: chatID}
}

func (n *TelegramNotifier) NotifyAchievement(ctx context.Context, title, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, fmt.Sprintf("%s\n%s", title, body))
	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}

// HistoryRecorder stores delivered notifications
type HistoryRecorder interface {
	Insert(ctx context.Context, n database.Notification) error
}

// HistoryNotifier records every notification so it can be listed later
type HistoryNotifier struct {
	repo HistoryRecorder
	now  func() time.Time
}

func NewHistoryNotifier(repo HistoryRecorder, now func() time.Time) *HistoryNotifier {
	if now == nil {
		now = time.Now
	}
	return &HistoryNotifier{repo: repo, now: now}
}

func (n *HistoryNotifier) NotifyAchievement(ctx context.Context, title, body string) error {
	return n.repo.Insert(ctx, database.Notification{Title: title, Body: body, CreatedAt: n.now()})
}

// Multi fans a notification out to every notifier. All are attempted; errors are joined.
type Multi []progress.Notifier

func (m Multi) NotifyAchievement(ctx context.Context, title, body string) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyAchievement(ctx, title, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
