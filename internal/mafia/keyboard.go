package mafia

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"
)

// CallbackPrefix is the prefix for all mafia callback data.
const CallbackPrefix = "mafia_"

// Callback actions.
const (
	CallbackJoin     = "join"
	CallbackAct      = "act"
	CallbackNominate = "nom"
	CallbackLynch    = "lynch"
)

// Night action kinds as they appear in callback data.
const (
	CallbackKill  = "kill"
	CallbackProbe = "probe"
	CallbackHeal  = "heal"
)

// ParseActionKind maps a night action callback kind to its ballot kind.
func ParseActionKind(s string) (NightActionKind, bool) {
	switch s {
	case CallbackKill:
		return ActionEliminate, true
	case CallbackProbe:
		return ActionInvestigate, true
	case CallbackHeal:
		return ActionProtect, true
	default:
		return 0, false
	}
}

// EncodeCallback encodes an action and its parameters into callback data.
func EncodeCallback(action string, params ...string) string {
	parts := append([]string{action}, params...)
	return CallbackPrefix + strings.Join(parts, "_")
}

// DecodeCallback decodes callback data into an action and parameters.
// Chat ids are negative for groups; the minus sign survives the
// underscore split.
func DecodeCallback(data string) (action string, params []string) {
	if !strings.HasPrefix(data, CallbackPrefix) {
		return "", nil
	}
	parts := strings.Split(strings.TrimPrefix(data, CallbackPrefix), "_")
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}

// JoinKeyboard builds the lobby announcement's join button.
func JoinKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{
		InlineKeyboard: [][]tele.InlineButton{{
			{Text: "➕ Join", Data: EncodeCallback(CallbackJoin)},
		}},
	}
}

// NightActionKeyboard builds the private target picker for a night
// action. The chat id rides in the callback data because the button is
// pressed in a private chat.
func NightActionKeyboard(chatID int64, kind string, targets []*Player) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	for _, p := range targets {
		markup.InlineKeyboard = append(markup.InlineKeyboard, []tele.InlineButton{{
			Text: p.Name,
			Data: EncodeCallback(CallbackAct, fmt.Sprintf("%d", chatID), kind, fmt.Sprintf("%d", p.ID)),
		}})
	}
	return markup
}

// NominationKeyboard builds the private suspect picker for the day
// nomination round.
func NominationKeyboard(chatID int64, targets []*Player) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	for _, p := range targets {
		markup.InlineKeyboard = append(markup.InlineKeyboard, []tele.InlineButton{{
			Text: p.Name,
			Data: EncodeCallback(CallbackNominate, fmt.Sprintf("%d", chatID), fmt.Sprintf("%d", p.ID)),
		}})
	}
	return markup
}

// LynchKeyboard builds the public in-favor/against ballot.
func LynchKeyboard(chatID int64) *tele.ReplyMarkup {
	return &tele.ReplyMarkup{
		InlineKeyboard: [][]tele.InlineButton{{
			{Text: "🪢 Lynch", Data: EncodeCallback(CallbackLynch, fmt.Sprintf("%d", chatID), "yes")},
			{Text: "🕊 Pardon", Data: EncodeCallback(CallbackLynch, fmt.Sprintf("%d", chatID), "no")},
		}},
	}
}
