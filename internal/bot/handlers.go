package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/lawstudy/internal/challenges"
	sr "github.com/example/lawstudy/internal/spaced_repetition"
	"github.com/example/lawstudy/internal/study"
	"github.com/example/lawstudy/pkg/models"
)

// Constants for callback data
const (
	callbackMainMenu   = "main_menu"
	callbackStudy      = "study"
	callbackStats      = "stats"
	callbackPartner    = "partner"
	callbackChallenges = "challenges"
	callbackReveal     = "reveal"
	callbackFinish     = "finish"
	callbackRatePrefix = "rate_"
)

// MainMenuButtons is the keyboard shown under most replies
func MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{{Text: "📚 Study", CallbackData: callbackStudy}, {Text: "📊 Stats", CallbackData: callbackStats}},
		{{Text: "👥 Partner", CallbackData: callbackPartner}, {Text: "⚔️ Challenges", CallbackData: callbackChallenges}},
	}
}

// HandleUpdate handles incoming updates from Telegram
func (b *Bot) HandleUpdate(update tgbotapi.Update) {
	var err error
	switch {
	case update.Message != nil && update.Message.IsCommand():
		err = b.HandleCommand(update.Message)
	case update.Message != nil:
		err = b.reply(update.Message.Chat.ID, "I don't understand. Use /menu to show the main menu.")
	case update.CallbackQuery != nil:
		err = b.HandleCallback(update.CallbackQuery)
	}
	if err != nil {
		b.log.WithError(err).Warn("failed to handle update")
	}
}

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(message *tgbotapi.Message) error {
	if message == nil || message.Chat == nil {
		return fmt.Errorf("invalid message: required fields are missing")
	}
	chatID := message.Chat.ID
	if message.Command() == "start" || message.Command() == "help" {
		return b.handleStart(chatID)
	}
	user, ok := b.userOf(chatID)
	if !ok {
		return b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("This chat (%d) is not linked to a participant.", chatID)))
	}

	switch message.Command() {
	case "menu":
		return b.reply(chatID, "🤖 Main menu")
	case "study":
		return b.handleStudy(chatID, user, strings.TrimSpace(message.CommandArguments()))
	case "stats":
		return b.handleStats(chatID, user)
	case "partner":
		return b.handlePartner(chatID, user)
	case "challenges":
		return b.handleChallenges(chatID, user)
	default:
		return b.reply(chatID, "Unknown command. Use /menu to show the main menu.")
	}
}

// HandleCallback handles button presses
func (b *Bot) HandleCallback(callback *tgbotapi.CallbackQuery) error {
	if callback == nil || callback.Message == nil || callback.Message.Chat == nil {
		return fmt.Errorf("invalid callback data: required fields are missing")
	}

	// Always answer the callback query to remove the loading state
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.log.WithError(err).Debug("failed to answer callback")
	}

	chatID := callback.Message.Chat.ID
	user, ok := b.userOf(chatID)
	if !ok {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "This chat is not linked to a participant."))
	}

	switch data := callback.Data; {
	case data == callbackMainMenu:
		return b.reply(chatID, "🤖 Main menu")
	case data == callbackStudy:
		return b.handleStudy(chatID, user, "")
	case data == callbackStats:
		return b.handleStats(chatID, user)
	case data == callbackPartner:
		return b.handlePartner(chatID, user)
	case data == callbackChallenges:
		return b.handleChallenges(chatID, user)
	case data == callbackReveal:
		return b.handleReveal(chatID, callback.Message.MessageID)
	case data == callbackFinish:
		return b.handleFinish(chatID)
	case strings.HasPrefix(data, callbackRatePrefix):
		n, err := strconv.Atoi(strings.TrimPrefix(data, callbackRatePrefix))
		if err != nil {
			return fmt.Errorf("invalid rating in callback data: %w", err)
		}
		return b.handleRate(chatID, models.Confidence(n))
	default:
		return b.sendMessage(tgbotapi.NewMessage(chatID, "⚠️ Unknown action"))
	}
}

// reply sends text with the main menu keyboard
func (b *Bot) reply(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(MainMenuButtons())
	return b.sendMessage(msg)
}

func (b *Bot) handleStart(chatID int64) error {
	text := "👋 Welcome to the law study tracker!\n\n" +
		"/study [subject] - Start a flashcard session\n" +
		"/stats - Your points, level and streak\n" +
		"/partner - How your study partner is doing\n" +
		"/challenges - Active challenges\n" +
		"/menu - Show the main menu"
	return b.reply(chatID, text)
}

func (b *Bot) session(chatID int64) (*study.Session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[chatID]
	return s, ok
}

func (b *Bot) handleStudy(chatID int64, user, subject string) error {
	s := b.study.StartSession(user, subject)
	if s.Remaining() == 0 {
		return b.reply(chatID, "🎉 Nothing is due right now. Come back later!")
	}
	b.mu.Lock()
	b.sessions[chatID] = s
	b.mu.Unlock()
	return b.showCard(chatID, s)
}

func (b *Bot) showCard(chatID int64, s *study.Session) error {
	card, ok := s.Current()
	if !ok {
		return b.handleFinish(chatID)
	}
	msg := tgbotapi.NewMessage(chatID, cardFront(card, s.Remaining()))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "👀 Show answer", CallbackData: callbackReveal}},
		{{Text: "🏁 Finish", CallbackData: callbackFinish}},
	})
	return b.sendMessage(msg)
}

func (b *Bot) handleReveal(chatID int64, messageID int) error {
	s, ok := b.session(chatID)
	if !ok {
		return b.reply(chatID, "No session in progress. Use /study to start one.")
	}
	card, ok := s.Current()
	if !ok {
		return b.handleFinish(chatID)
	}
	markup := createKeyboard([][]MenuButton{{
		{Text: "😰 Hard", CallbackData: callbackRatePrefix + strconv.Itoa(int(models.ConfidenceHard))},
		{Text: "🤔 Medium", CallbackData: callbackRatePrefix + strconv.Itoa(int(models.ConfidenceMedium))},
		{Text: "😎 Easy", CallbackData: callbackRatePrefix + strconv.Itoa(int(models.ConfidenceEasy))},
	}})
	return b.editMessage(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, cardBack(card), markup))
}

func (b *Bot) handleRate(chatID int64, rating models.Confidence) error {
	s, ok := b.session(chatID)
	if !ok {
		return b.reply(chatID, "No session in progress. Use /study to start one.")
	}
	if _, err := s.Answer(rating); err != nil {
		b.log.WithError(err).WithField("user", s.UserID).Warn("rating failed")
		return b.reply(chatID, "❌ Could not save your rating. Please try again.")
	}
	return b.showCard(chatID, s)
}

func (b *Bot) handleFinish(chatID int64) error {
	b.mu.Lock()
	s, ok := b.sessions[chatID]
	delete(b.sessions, chatID)
	b.mu.Unlock()
	if !ok {
		return b.reply(chatID, "No session in progress. Use /study to start one.")
	}

	result, err := s.Finish()
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	return b.reply(chatID, sessionSummary(result))
}

func (b *Bot) handleStats(chatID int64, user string) error {
	stats := b.study.Stats(user)
	text := fmt.Sprintf("📊 Your progress\n\n"+
		"⭐ Points: %d (level %d, %.0f%% to next)\n"+
		"🔥 Streak: %d days\n"+
		"📚 Topics studied: %d, mastered: %d\n"+
		"⏱ Study time: %d min\n"+
		"🏆 Achievements: %d\n"+
		"🥇 Rank: %d of %d",
		stats.Points, stats.Level.Level, stats.Level.ProgressPercent,
		stats.Streak,
		stats.TopicsStudied, stats.TopicsMastered,
		stats.TotalStudyMinutes,
		stats.AchievementsEarned,
		stats.Standing.Rank, stats.Standing.Total)
	return b.reply(chatID, text)
}

func (b *Bot) handlePartner(chatID int64, user string) error {
	partnerID, ok := b.partnerOf(user)
	if !ok {
		return b.reply(chatID, "You have no study partner yet.")
	}
	p, err := b.study.PartnerStatus(user, partnerID)
	if err != nil {
		return err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 %s is %s (last active: %s)\n", b.displayName(partnerID), p.Presence, p.LastActivity)
	fmt.Fprintf(&sb, "⭐ %d points, 🔥 %d day streak\n\n", p.Stats.Points, p.Stats.Streak)
	sb.WriteString(strings.Join(p.Messages, "\n"))
	return b.reply(chatID, sb.String())
}

func (b *Bot) handleChallenges(chatID int64, user string) error {
	var lines []string
	for _, c := range b.engine.GetChallenges() {
		if !c.IsActive() || !c.Involves(user) {
			continue
		}
		name := string(c.Type)
		if info, ok := challenges.Info(c.Type); ok {
			name = info.Icon + " " + info.Name
		}
		opponent := c.ChallengedID
		if opponent == user {
			opponent = c.ChallengerID
		}
		lines = append(lines, fmt.Sprintf("%s vs %s, target %d, ends %s", name, b.displayName(opponent), c.TargetValue, c.Deadline.Format("Jan 2 15:04")))
	}
	if len(lines) == 0 {
		return b.reply(chatID, "No active challenges.")
	}
	return b.reply(chatID, "⚔️ Active challenges\n\n"+strings.Join(lines, "\n"))
}

func cardFront(card sr.Card, remaining int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📖 %s\n", card.Title)
	if len(card.Path) > 0 {
		fmt.Fprintf(&sb, "%s / %s\n", card.Subject, strings.Join(card.Path, " / "))
	}
	fmt.Fprintf(&sb, "\n%s · %d left", card.Priority, remaining)
	return sb.String()
}

func cardBack(card sr.Card) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📖 %s\n\n%s\n", card.Title, card.Rule)
	for _, el := range card.Elements {
		fmt.Fprintf(&sb, "• %s\n", el)
	}
	if card.Mnemonic != "" {
		fmt.Fprintf(&sb, "\n💡 %s\n", card.Mnemonic)
	}
	sb.WriteString("\nHow well did you know it?")
	return sb.String()
}

func sessionSummary(result study.SessionResult) string {
	st := result.Stats
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏁 Session complete!\n\nCards: %d\nAccuracy: %d%%\nPoints: +%d", st.CardsStudied, st.Accuracy(), result.Points)
	for _, a := range result.Achievements {
		fmt.Fprintf(&sb, "\n🏆 %s", a.Title)
	}
	return sb.String()
}
