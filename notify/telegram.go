package notify

import (
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"food-console/models"
)

// Sender is the part of *tgbotapi.BotAPI the relay needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramRelay forwards newly seen unread notifications to an admin chat.
// The first snapshot only records what is already there.
type TelegramRelay struct {
	bot    Sender
	chatID int64
	log    *zap.Logger

	mu     sync.Mutex
	seen   map[string]bool
	primed bool
}

func NewTelegramRelay(bot Sender, chatID int64, log *zap.Logger) *TelegramRelay {
	if log == nil {
		log = zap.NewNop()
	}
	return &TelegramRelay{bot: bot, chatID: chatID, log: log, seen: make(map[string]bool)}
}

// NewTelegramBot connects to the Bot API with token.
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return api, nil
}

// Handle is meant to be registered with Feed.Subscribe.
func (r *TelegramRelay) Handle(s Snapshot) {
	r.mu.Lock()
	var fresh []string
	for _, n := range s.Items {
		if r.seen[n.ID] {
			continue
		}
		r.seen[n.ID] = true
		if r.primed && !n.IsRead {
			fresh = append(fresh, formatNotification(n))
		}
	}
	r.primed = true
	r.mu.Unlock()

	// oldest first so the chat reads chronologically
	for i := len(fresh) - 1; i >= 0; i-- {
		msg := tgbotapi.NewMessage(r.chatID, fresh[i])
		if _, err := r.bot.Send(msg); err != nil {
			r.log.Warn("telegram send", zap.Int64("chat_id", r.chatID), zap.Error(err))
		}
	}
}

func formatNotification(n models.Notification) string {
	title := n.Title
	if title == "" {
		title = "Notification"
	}
	var b strings.Builder
	b.WriteString(Icon(n))
	b.WriteString(" ")
	b.WriteString(title)
	if n.Body != "" {
		b.WriteString("\n")
		b.WriteString(n.Body)
	}
	b.WriteString("\n")
	b.WriteString(RouteFor(n).Path())
	return b.String()
}
