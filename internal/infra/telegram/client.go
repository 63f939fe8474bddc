// internal/infra/telegram/client.go
package telegram

import (
	"context"

	"gopkg.in/telebot.v3"
)

// AlertNotifier implements the alert.Notifier interface over a Telegram chat
// using the gopkg.in/telebot.v3 library. The portal pages this chat when a
// payment cleared but the submission could not be guaranteed.
type AlertNotifier struct {
	bot    *telebot.Bot
	chatID int64
}

func NewAlertNotifier(token string, chatID int64) (*AlertNotifier, error) {
	bot, err := telebot.NewBot(telebot.Settings{Token: token, Offline: false, Synchronous: true})
	if err != nil {
		return nil, err
	}
	return &AlertNotifier{bot: bot, chatID: chatID}, nil
}

// Alert sends the text to the configured ops chat.
func (n *AlertNotifier) Alert(_ context.Context, text string) error {
	recipient := &telebot.Chat{ID: n.chatID}
	_, err := n.bot.Send(recipient, text, &telebot.SendOptions{})
	return err
}
