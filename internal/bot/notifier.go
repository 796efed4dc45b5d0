package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/lawstudy/internal/challenges"
	"github.com/example/lawstudy/internal/events"
	"github.com/example/lawstudy/pkg/models"
)

// Subscribe registers the partner notifications on bus and returns a function
// that removes them
func (b *Bot) Subscribe(bus *events.Bus) func() {
	unsubscribe := []func(){
		bus.Subscribe(events.ChallengeCreated, b.onChallengeCreated),
		bus.Subscribe(events.ChallengeCompleted, b.onChallengeCompleted),
		bus.Subscribe(events.AchievementEarned, b.onAchievementEarned),
	}
	return func() {
		for _, fn := range unsubscribe {
			fn()
		}
	}
}

func (b *Bot) onChallengeCreated(e events.Event) {
	payload, ok := e.Payload.(events.ChallengePayload)
	if !ok {
		return
	}
	c := payload.Challenge
	chat, ok := b.chatOf(c.ChallengedID)
	if !ok {
		return
	}
	msg := tgbotapi.NewMessage(chat, challengeCreatedText(c, b.displayName(c.ChallengerID)))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{{{Text: "⚔️ Challenges", CallbackData: callbackChallenges}}})
	b.enqueue(msg)
}

func (b *Bot) onChallengeCompleted(e events.Event) {
	payload, ok := e.Payload.(events.ChallengePayload)
	if !ok {
		return
	}
	c := payload.Challenge
	text := challengeCompletedText(c, b.displayName)
	for _, user := range []string{c.ChallengerID, c.ChallengedID} {
		if chat, ok := b.chatOf(user); ok {
			b.enqueue(tgbotapi.NewMessage(chat, text))
		}
	}
}

// onAchievementEarned tells the earner and their partners
func (b *Bot) onAchievementEarned(e events.Event) {
	payload, ok := e.Payload.(events.AchievementPayload)
	if !ok {
		return
	}
	a := payload.Achievement
	for user, chat := range b.config.Chats {
		var text string
		if user == payload.UserID {
			text = fmt.Sprintf("🏆 Achievement unlocked: %s (+%d points)\n%s", a.Title, a.Points, a.Description)
		} else {
			text = fmt.Sprintf("🏆 %s earned %s (+%d points)", b.displayName(payload.UserID), a.Title, a.Points)
		}
		b.enqueue(tgbotapi.NewMessage(chat, text))
	}
}

func challengeCreatedText(c models.Challenge, challenger string) string {
	var sb strings.Builder
	name, unit := string(c.Type), ""
	if info, ok := challenges.Info(c.Type); ok {
		name, unit = info.Icon+" "+info.Name, info.Unit
	}
	fmt.Fprintf(&sb, "⚔️ %s challenged you!\n\n%s\n", challenger, name)
	if c.Description != "" {
		fmt.Fprintf(&sb, "%s\n", c.Description)
	}
	fmt.Fprintf(&sb, "Target: %d %s\n", c.TargetValue, unit)
	fmt.Fprintf(&sb, "Deadline: %s", c.Deadline.Format("Mon Jan 2 15:04"))
	return sb.String()
}

func challengeCompletedText(c models.Challenge, name func(string) string) string {
	title := string(c.Type)
	if info, ok := challenges.Info(c.Type); ok {
		title = info.Name
	}
	switch {
	case c.WinnerID != nil:
		return fmt.Sprintf("🏁 %s finished: %s wins!", title, name(*c.WinnerID))
	case c.Status == models.ChallengeExpired:
		return fmt.Sprintf("⌛ %s expired without a winner.", title)
	default:
		return fmt.Sprintf("🤝 %s finished in a tie.", title)
	}
}

// SendReminders tells userID how many cards are waiting for review
func (b *Bot) SendReminders(userID string, count int) error {
	chat, ok := b.chatOf(userID)
	if !ok {
		return fmt.Errorf("no chat configured for %s", userID)
	}

	cardForm := "cards"
	if count == 1 {
		cardForm = "card"
	}
	msg := tgbotapi.NewMessage(chat, fmt.Sprintf("📚 You have %d %s to review! Tap Study to start.", count, cardForm))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{{{Text: "📚 Study", CallbackData: callbackStudy}}})
	if err := b.sendMessage(msg); err != nil {
		b.log.WithError(err).WithField("user", userID).Warn("Error sending reminder")
		return err
	}
	b.log.WithField("user", userID).Infof("Successfully sent reminder for %d cards", count)
	return nil
}

// CheckDueReviews sends a reminder to every linked participant with due cards
func (b *Bot) CheckDueReviews() {
	for user := range b.config.Chats {
		count := len(b.study.BuildDeck(user, ""))
		if count == 0 {
			continue
		}
		_ = b.SendReminders(user, count)
	}
}
