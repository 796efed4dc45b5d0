package bot

import (
	"time"
)

// BotConfig represents the configuration for the bot
type BotConfig struct {
	Token string
	// Telegram chat of each participant
	Chats map[string]int64
	// Reminders are only sent between these hours, inclusive
	NotificationStartHour int
	NotificationEndHour   int
	// Long polling timeout in seconds
	UpdateTimeout int
	// Notifications waiting to be sent; further ones are dropped
	OutboxSize int
	// Time allowed for a single Telegram request
	SendTimeout time.Duration
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() BotConfig {
	return BotConfig{
		Chats:                 map[string]int64{},
		NotificationStartHour: 8,
		NotificationEndHour:   22,
		UpdateTimeout:         60,
		OutboxSize:            64,
		SendTimeout:           10 * time.Second,
	}
}

// Enabled reports whether a token is configured
func (c BotConfig) Enabled() bool {
	return c.Token != ""
}
