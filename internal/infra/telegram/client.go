package telegram

import (
	"errors"
	"fmt"

	"gopkg.in/telebot.v3"

	domainTelegram "birthday_reminder_bot/internal/domain/telegram"
)

// TelebotAdapter delivers reminder text to a chat id through telebot.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends text to the chat with the given id. The id may be the
// owner's private chat or a group chat (negative id). Link previews are off
// unless options say otherwise. Errors that mean the chat is gone wrap
// ErrRecipientUnreachable.
func (tba *TelebotAdapter) SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{DisableWebPagePreview: true}
	}

	_, err := tba.bot.Send(telebot.ChatID(recipientChatID), text, options)
	if err == nil {
		return nil
	}
	if isUnreachable(err) {
		return fmt.Errorf("chat %d: %w: %v", recipientChatID, domainTelegram.ErrRecipientUnreachable, err)
	}
	return fmt.Errorf("send to chat %d: %w", recipientChatID, err)
}

func isUnreachable(err error) bool {
	return errors.Is(err, telebot.ErrBlockedByUser) ||
		errors.Is(err, telebot.ErrChatNotFound) ||
		errors.Is(err, telebot.ErrUserIsDeactivated) ||
		errors.Is(err, telebot.ErrKickedFromGroup)
}
