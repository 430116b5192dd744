package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/example/lingoprogress/internal/database"
	"github.com/example/lingoprogress/pkg/models"
)

// API is the part of *tgbotapi.BotAPI the bot uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// ProgressStore is the part of the progress store the bot reads and updates
type ProgressStore interface {
	Snapshot() models.UserProgress
	UpdateStreak(ctx context.Context) int
}

// History lists delivered notifications
type History interface {
	Recent(ctx context.Context, limit int) ([]database.Notification, error)
}

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// mainMenuButtons returns the buttons for the main menu
func mainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "📊 Progress", CallbackData: "progress"},
			{Text: "🔥 Check in", CallbackData: "checkin"},
		},
		{
			{Text: "🏅 History", CallbackData: "history"},
			{Text: "📄 Export", CallbackData: "export"},
		},
	}
}

// Bot represents the Telegram bot application
type Bot struct {
	api     API
	store   ProgressStore
	history History
	chatID  int64 // 0 answers every chat
	log     *zap.Logger
}

// New creates a new bot instance. history may be nil.
func New(api API, store ProgressStore, history History, chatID int64, log *zap.Logger) *Bot {
	return &Bot{
		api:     api,
		store:   store,
		history: history,
		chatID:  chatID,
		log:     log.Named("bot"),
	}
}

// Start handles updates until ctx is cancelled or Stop is called
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := b.api.GetUpdatesChan(updateConfig)
	b.log.Info("bot started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// Stop gracefully stops the bot
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
	b.log.Info("bot stopped")
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		msg := update.Message
		if msg.Chat == nil {
			return
		}
		if !b.allowed(msg.Chat.ID) {
			b.send(tgbotapi.NewMessage(msg.Chat.ID, "This bot is private."))
			return
		}
		if !msg.IsCommand() {
			b.reply(msg.Chat.ID, "I don't understand. Use /start to show the menu.")
			return
		}
		b.handleCommand(ctx, msg.Chat.ID, msg.Command())

	case update.CallbackQuery != nil:
		// Handle callback queries from buttons
		cb := update.CallbackQuery
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			b.log.Warn("failed to answer callback", zap.Error(err))
		}
		if cb.Message == nil || cb.Message.Chat == nil || !b.allowed(cb.Message.Chat.ID) {
			return
		}
		b.handleCommand(ctx, cb.Message.Chat.ID, cb.Data)
	}
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, command string) {
	switch command {
	case "start", "menu":
		b.reply(chatID, welcomeText)
	case "progress":
		b.reply(chatID, renderProgress(b.store.Snapshot()))
	case "checkin":
		b.reply(chatID, renderCheckin(b.store.UpdateStreak(ctx)))
	case "history":
		b.handleHistory(ctx, chatID)
	case "export":
		b.handleExport(chatID)
	default:
		b.reply(chatID, "Unknown command. Use /start to show the menu.")
	}
}

func (b *Bot) allowed(chatID int64) bool {
	return b.chatID == 0 || chatID == b.chatID
}

// reply sends text with the main menu attached
func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(mainMenuButtons())
	b.send(msg)
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Warn("failed to send message", zap.Error(err))
	}
}

func (b *Bot) sendError(chatID int64, what string, err error) {
	b.log.Error(what, zap.Error(err))
	b.reply(chatID, fmt.Sprintf("❌ %s, please try again later", what))
}
