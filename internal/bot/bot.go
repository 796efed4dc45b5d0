// Package bot is the Telegram surface: partner notifications and a small
// flashcard interface.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/example/lawstudy/internal/study"
	"github.com/example/lawstudy/pkg/models"
)

var ErrDisabled = errors.New("telegram token is not configured")

// api is the subset of *tgbotapi.BotAPI the bot uses
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Engine is the read side of the sync engine shown in chat
type Engine interface {
	Participants() []string
	GetUserData(userID string) models.UserProfile
	GetChallenges() []models.Challenge
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

// Bot represents the Telegram bot application
type Bot struct {
	api    api
	config BotConfig
	engine Engine
	study  *study.Service
	log    logrus.FieldLogger

	users  map[int64]string
	outbox chan tgbotapi.Chattable

	mu       sync.Mutex
	sessions map[int64]*study.Session
}

// New connects to Telegram with the configured token
func New(config BotConfig, engine Engine, svc *study.Service, log logrus.FieldLogger) (*Bot, error) {
	if !config.Enabled() {
		return nil, ErrDisabled
	}
	botAPI, err := tgbotapi.NewBotAPI(config.Token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	b := newBot(botAPI, config, engine, svc, log)
	b.log.Infof("Authorized on account %s", botAPI.Self.UserName)
	return b, nil
}

func newBot(client api, config BotConfig, engine Engine, svc *study.Service, log logrus.FieldLogger) *Bot {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if config.OutboxSize <= 0 {
		config.OutboxSize = DefaultConfig().OutboxSize
	}
	users := make(map[int64]string, len(config.Chats))
	for user, chat := range config.Chats {
		users[chat] = user
	}
	return &Bot{
		api:      client,
		config:   config,
		engine:   engine,
		study:    svc,
		log:      log.WithField("component", "bot"),
		users:    users,
		outbox:   make(chan tgbotapi.Chattable, config.OutboxSize),
		sessions: make(map[int64]*study.Session),
	}
}

// Start handles updates and delivers queued notifications until ctx is done
func (b *Bot) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.deliver(ctx)
	}()
	defer wg.Wait()

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.config.UpdateTimeout
	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("Bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(update)
		}
	}
}

// deliver sends queued notifications in order
func (b *Bot) deliver(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.outbox:
			if err := b.sendMessage(msg); err != nil {
				b.log.WithError(err).Warn("failed to deliver notification")
			}
		}
	}
}

// enqueue never blocks the caller, which may be an event handler
func (b *Bot) enqueue(msg tgbotapi.Chattable) {
	select {
	case b.outbox <- msg:
	default:
		b.log.Warn("notification outbox full, dropping message")
	}
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) error {
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) editMessage(msg tgbotapi.EditMessageTextConfig) error {
	_, err := b.api.Request(msg)
	return err
}

func (b *Bot) chatOf(userID string) (int64, bool) {
	chat, ok := b.config.Chats[userID]
	return chat, ok
}

func (b *Bot) userOf(chatID int64) (string, bool) {
	user, ok := b.users[chatID]
	return user, ok
}

func (b *Bot) displayName(userID string) string {
	if b.engine == nil {
		return userID
	}
	if name := b.engine.GetUserData(userID).DisplayName; name != "" {
		return name
	}
	return userID
}

// partnerOf returns the first other participant
func (b *Bot) partnerOf(userID string) (string, bool) {
	for _, id := range b.engine.Participants() {
		if id != userID {
			return id, true
		}
	}
	return "", false
}
