package notify

import (
	"context"
	"fmt"

	"ledgersync/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Sender is the slice of the Telegram bot API the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts sync notifications to an ops chat.
type TelegramNotifier struct {
	sender Sender
	chatID int64
	logger *zerolog.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger *zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{sender: bot, chatID: chatID, logger: logger}, nil
}

// NewTelegramNotifierWithSender is used by tests and by callers that manage
// the bot themselves.
func NewTelegramNotifierWithSender(sender Sender, chatID int64, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, chatID: chatID, logger: logger}
}

func (n *TelegramNotifier) FirstSyncComplete(ctx context.Context, sync *models.Sync) error {
	text := fmt.Sprintf(
		"✅ First sync complete for organization %d (%s, sync %d).",
		sync.OrganizationID, sync.ForModel, sync.ID,
	)
	return n.send(text)
}

func (n *TelegramNotifier) InvalidToken(ctx context.Context, sync *models.Sync) error {
	text := fmt.Sprintf(
		"⚠️ Provider credential for organization %d is no longer valid; token %d will be revoked (sync %d, %s). Reconnect the account to resume syncing.",
		sync.OrganizationID, sync.TokenID, sync.ID, sync.ForModel,
	)
	return n.send(text)
}

func (n *TelegramNotifier) send(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("send telegram notification: %w", err)
	}
	return nil
}
