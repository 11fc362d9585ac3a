package bot

import (
	"strconv"

	tele "gopkg.in/telebot.v3"
)

// TeleNotifier delivers engine messages through the Telegram API. It is
// the bot-side implementation of the game engine's notifier contract.
type TeleNotifier struct {
	bot *tele.Bot
}

// NewTeleNotifier creates a notifier over a telebot instance.
func NewTeleNotifier(bot *tele.Bot) *TeleNotifier {
	return &TeleNotifier{bot: bot}
}

func storedMessage(chatID int64, messageID int) tele.StoredMessage {
	return tele.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    chatID,
	}
}

// SendPrivate sends a plain text message to a user's private chat.
func (n *TeleNotifier) SendPrivate(userID int64, text string) error {
	_, err := n.bot.Send(tele.ChatID(userID), text)
	return err
}

// SendPrivateMenu sends a text message with an inline keyboard to a
// user's private chat.
func (n *TeleNotifier) SendPrivateMenu(userID int64, text string, menu *tele.ReplyMarkup) error {
	_, err := n.bot.Send(tele.ChatID(userID), text, menu)
	return err
}

// SendGroup sends a plain text message to a group chat.
func (n *TeleNotifier) SendGroup(chatID int64, text string) (int, error) {
	msg, err := n.bot.Send(tele.ChatID(chatID), text)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// SendGroupMenu sends a text message with an inline keyboard to a group
// chat.
func (n *TeleNotifier) SendGroupMenu(chatID int64, text string, menu *tele.ReplyMarkup) (int, error) {
	msg, err := n.bot.Send(tele.ChatID(chatID), text, menu)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// Edit replaces the text and keyboard of a previously sent message.
func (n *TeleNotifier) Edit(chatID int64, messageID int, text string, menu *tele.ReplyMarkup) error {
	msg := storedMessage(chatID, messageID)
	var err error
	if menu != nil {
		_, err = n.bot.Edit(msg, text, menu)
	} else {
		_, err = n.bot.Edit(msg, text)
	}
	return err
}

// Delete removes a previously sent message.
func (n *TeleNotifier) Delete(chatID int64, messageID int) error {
	return n.bot.Delete(storedMessage(chatID, messageID))
}

// Pin pins a message in a group chat.
func (n *TeleNotifier) Pin(chatID int64, messageID int) error {
	return n.bot.Pin(storedMessage(chatID, messageID))
}

// Unpin unpins a message in a group chat.
func (n *TeleNotifier) Unpin(chatID int64, messageID int) error {
	return n.bot.Unpin(tele.ChatID(chatID), messageID)
}
