package telegram

import (
	"errors"

	"gopkg.in/telebot.v3"
)

// ErrRecipientUnreachable means the reminder chat can no longer receive
// messages: the owner blocked the bot, deleted the chat or the account.
var ErrRecipientUnreachable = errors.New("reminder recipient unreachable")

// Client sends messages to a Telegram chat.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}
