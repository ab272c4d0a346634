package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier delivers run summaries to a chat.
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
}

type client struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewClient connects to the Bot API and verifies the token.
func NewClient(botToken string, chatID int64) (Notifier, error) {
	return newClient(botToken, chatID, tgbotapi.APIEndpoint)
}

func newClient(botToken string, chatID int64, endpoint string) (Notifier, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(botToken, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &client{
		bot:    bot,
		chatID: chatID,
	}, nil
}

// SendMessage posts a Markdown message without link previews. The Bot API client
// has no context support, so ctx is only checked before sending.
func (c *client) SendMessage(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("telegram message not sent: %w", err)
	}

	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message to chat %d: %w", c.chatID, err)
	}
	return nil
}
